package core

import "fmt"

// Layer names used in DecodeError and metric labels.
const (
	LayerEthernet = "ethernet"
	LayerIPv4     = "ipv4"
	LayerIPv6     = "ipv6"
	LayerTCP      = "tcp"
)

// Kind classifies a codec failure.
type Kind uint8

const (
	// KindTruncated: fewer bytes than a fixed header requires.
	KindTruncated Kind = iota + 1
	// KindInvalidField: a fixed field holds a value the format forbids
	// (IPv4 version != 4, IHL < 5, TCP data offset < 5).
	KindInvalidField
	// KindUnknownOption: option type/kind byte outside the supported set.
	KindUnknownOption
	// KindTruncatedOption: option length byte is inconsistent or runs past
	// the end of the options area.
	KindTruncatedOption
	// KindFieldOverflow: a value does not fit its bit width on encode.
	KindFieldOverflow
)

var kindNames = map[Kind]string{
	KindTruncated:       "truncated",
	KindInvalidField:    "invalid_field",
	KindUnknownOption:   "unknown_option",
	KindTruncatedOption: "truncated_option",
	KindFieldOverflow:   "field_overflow",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// sentinel maps each kind to the error errors.Is should match.
func (k Kind) sentinel() error {
	switch k {
	case KindTruncated:
		return ErrPacketTooShort
	case KindInvalidField:
		return ErrInvalidField
	case KindUnknownOption:
		return ErrUnknownOption
	case KindTruncatedOption:
		return ErrTruncatedOption
	case KindFieldOverflow:
		return ErrFieldOverflow
	default:
		return nil
	}
}

// DecodeError is returned by every codec in this module. Offset is relative
// to the start of the slice handed to the failing parse function.
type DecodeError struct {
	Layer  string
	Kind   Kind
	Offset int
	Msg    string
}

// NewDecodeError builds a DecodeError with a formatted message.
func NewDecodeError(layer string, kind Kind, offset int, format string, args ...any) *DecodeError {
	return &DecodeError{
		Layer:  layer,
		Kind:   kind,
		Offset: offset,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d: %s", e.Layer, e.Kind, e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind.sentinel()
}
