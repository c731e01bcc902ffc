package ethernet

import "fmt"

// EtherType is the opaque big-endian payload type tag of a frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
	EtherTypeVLAN EtherType = 0x8100
	EtherTypeIPv6 EtherType = 0x86DD
	EtherTypeQinQ EtherType = 0x88A8
)

// IsKnown reports whether t is one of the payload types this module names.
func (t EtherType) IsKnown() bool {
	switch t {
	case EtherTypeIPv4, EtherTypeARP, EtherTypeVLAN, EtherTypeIPv6, EtherTypeQinQ:
		return true
	}
	return false
}

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	case EtherTypeVLAN:
		return "802.1Q"
	case EtherTypeIPv6:
		return "IPv6"
	case EtherTypeQinQ:
		return "802.1ad"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(t))
	}
}
