package ipv4

import "strings"

// Bits of the 16-bit flags/fragment-offset word at bytes 6-7.
const (
	flagReserved      uint16 = 0x8000
	flagDontFragment  uint16 = 0x4000
	flagMoreFragments uint16 = 0x2000

	fragmentOffsetMask uint16 = 0x1FFF
)

// Flags are the three control bits of the IPv4 header. Reserved must be zero
// on the wire but is carried through decode without rejection.
type Flags struct {
	Reserved      bool
	DontFragment  bool
	MoreFragments bool
}

// Pack combines f with the low 13 bits of fragmentOffset into the wire word.
func (f Flags) Pack(fragmentOffset uint16) uint16 {
	v := fragmentOffset & fragmentOffsetMask
	if f.Reserved {
		v |= flagReserved
	}
	if f.DontFragment {
		v |= flagDontFragment
	}
	if f.MoreFragments {
		v |= flagMoreFragments
	}
	return v
}

// UnpackFlags splits the wire word into flags and the 13-bit fragment offset.
func UnpackFlags(v uint16) (Flags, uint16) {
	f := Flags{
		Reserved:      v&flagReserved != 0,
		DontFragment:  v&flagDontFragment != 0,
		MoreFragments: v&flagMoreFragments != 0,
	}
	return f, v & fragmentOffsetMask
}

// String lists the set flags, e.g. "DF" or "RES|MF"; "none" when clear.
func (f Flags) String() string {
	var names []string
	if f.Reserved {
		names = append(names, "RES")
	}
	if f.DontFragment {
		names = append(names, "DF")
	}
	if f.MoreFragments {
		names = append(names, "MF")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
