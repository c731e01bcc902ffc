package tcp

import "strings"

// Flag bit positions in byte 13.
const (
	flagFIN uint8 = 1 << iota
	flagSYN
	flagRST
	flagPSH
	flagACK
	flagURG
	flagECE
	flagCWR
)

// Flags are the eight named control bits.
type Flags struct {
	CWR bool
	ECE bool
	URG bool
	ACK bool
	PSH bool
	RST bool
	SYN bool
	FIN bool
}

// Byte packs f into the wire octet.
func (f Flags) Byte() uint8 {
	var v uint8
	set := func(on bool, bit uint8) {
		if on {
			v |= bit
		}
	}
	set(f.FIN, flagFIN)
	set(f.SYN, flagSYN)
	set(f.RST, flagRST)
	set(f.PSH, flagPSH)
	set(f.ACK, flagACK)
	set(f.URG, flagURG)
	set(f.ECE, flagECE)
	set(f.CWR, flagCWR)
	return v
}

// FlagsFromByte unpacks the wire octet.
func FlagsFromByte(v uint8) Flags {
	return Flags{
		CWR: v&flagCWR != 0,
		ECE: v&flagECE != 0,
		URG: v&flagURG != 0,
		ACK: v&flagACK != 0,
		PSH: v&flagPSH != 0,
		RST: v&flagRST != 0,
		SYN: v&flagSYN != 0,
		FIN: v&flagFIN != 0,
	}
}

// ParseFlags reads a comma separated list such as "syn,ack". Names are
// case-insensitive; unknown names are reported through ok=false.
func ParseFlags(s string) (f Flags, ok bool) {
	if strings.TrimSpace(s) == "" {
		return f, true
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "CWR":
			f.CWR = true
		case "ECE":
			f.ECE = true
		case "URG":
			f.URG = true
		case "ACK":
			f.ACK = true
		case "PSH":
			f.PSH = true
		case "RST":
			f.RST = true
		case "SYN":
			f.SYN = true
		case "FIN":
			f.FIN = true
		default:
			return Flags{}, false
		}
	}
	return f, true
}

// String lists the set flags, highest bit first, e.g. "SYN|ACK".
func (f Flags) String() string {
	var names []string
	for _, e := range []struct {
		on   bool
		name string
	}{
		{f.CWR, "CWR"}, {f.ECE, "ECE"}, {f.URG, "URG"}, {f.ACK, "ACK"},
		{f.PSH, "PSH"}, {f.RST, "RST"}, {f.SYN, "SYN"}, {f.FIN, "FIN"},
	} {
		if e.on {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
