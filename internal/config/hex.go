package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

var hexSeparators = strings.NewReplacer(" ", "", "\n", "", "\r", "", "\t", "", ":", "")

// DecodeHex decodes hex text as written by people: whitespace and colons
// between digits are ignored and a leading 0x is optional.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(hexSeparators.Replace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}
