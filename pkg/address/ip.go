package address

import (
	"fmt"
	"net/netip"
)

// IPv4 is a 4-byte network address.
type IPv4 [4]byte

// IPv6 is a 16-byte network address.
type IPv6 [16]byte

// ParseIPv4 parses dotted-quad notation.
func ParseIPv4(s string) (IPv4, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4{}, err
	}
	if !addr.Is4() {
		return IPv4{}, fmt.Errorf("address %s: not an IPv4 address", s)
	}
	return addr.As4(), nil
}

// ParseIPv6 parses any IPv6 textual form. IPv4-mapped forms are accepted.
func ParseIPv6(s string) (IPv6, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv6{}, err
	}
	if !addr.Is6() {
		return IPv6{}, fmt.Errorf("address %s: not an IPv6 address", s)
	}
	return addr.As16(), nil
}

func (a IPv4) Addr() netip.Addr { return netip.AddrFrom4(a) }
func (a IPv4) String() string   { return a.Addr().String() }

func (a IPv6) Addr() netip.Addr { return netip.AddrFrom16(a) }
func (a IPv6) String() string   { return a.Addr().String() }
