// Package address provides the fixed-width link and network address values
// consumed by the header codecs. They carry raw bytes only.
package address

import (
	"fmt"
	"net"
)

const (
	multicastBit = 0x01
	localBit     = 0x02
)

// MAC is a 6-byte IEEE 802 link address.
type MAC [6]byte

// BroadcastMAC returns ff:ff:ff:ff:ff:ff.
func BroadcastMAC() MAC {
	return MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// ParseMAC parses a 48-bit address in any form net.ParseMAC accepts.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("address %s: not a 48-bit MAC", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

func (m MAC) IsBroadcast() bool { return m == BroadcastMAC() }

// IsMulticast reports whether the I/G bit of the first octet is set.
func (m MAC) IsMulticast() bool { return m[0]&multicastBit != 0 }

func (m MAC) IsUnicast() bool { return !m.IsMulticast() }

// IsLocal reports whether the U/L bit marks a locally administered address.
func (m MAC) IsLocal() bool { return m[0]&localBit != 0 }

func (m MAC) IsUniversal() bool { return !m.IsLocal() }

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}
