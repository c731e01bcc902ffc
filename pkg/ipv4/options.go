package ipv4

import "firestige.xyz/pktbuilder/internal/core"

// OptionType is the RFC 791 option type octet.
type OptionType uint8

const (
	OptionTypeEndOfList   OptionType = 0
	OptionTypeNoOperation OptionType = 1
)

// Option is one IPv4 option record. Only the two single-byte kinds are
// supported.
type Option struct {
	Type OptionType
}

var (
	EndOfOptionsList = Option{Type: OptionTypeEndOfList}
	NoOperation      = Option{Type: OptionTypeNoOperation}
)

// Len is the encoded size of o in bytes.
func (o Option) Len() int { return 1 }

func (o Option) String() string {
	switch o.Type {
	case OptionTypeEndOfList:
		return "EOL"
	case OptionTypeNoOperation:
		return "NOP"
	default:
		return "UNKNOWN"
	}
}

// Options is an ordered list of option records.
type Options []Option

// Add appends opt. Ordering and duplicate end markers are not checked.
func (o *Options) Add(opt Option) {
	*o = append(*o, opt)
}

// TotalLength is the encoded size including zero padding to a 4-byte
// boundary.
func (o Options) TotalLength() int {
	n := 0
	for _, opt := range o {
		n += opt.Len()
	}
	return (n + 3) &^ 3
}

// WordsNeeded is the number of 32-bit words the options occupy in the IHL.
func (o Options) WordsNeeded() int {
	return o.TotalLength() / 4
}

// Validate rejects option types the encoder cannot represent. Offsets are
// relative to the start of the header.
func (o Options) Validate() error {
	for i, opt := range o {
		switch opt.Type {
		case OptionTypeEndOfList, OptionTypeNoOperation:
		default:
			return core.NewDecodeError(core.LayerIPv4, core.KindUnknownOption, HeaderLen+i,
				"unknown option type %d", uint8(opt.Type))
		}
	}
	return nil
}

// AppendTo appends the option bytes in insertion order followed by zero
// padding.
func (o Options) AppendTo(b []byte) []byte {
	start := len(b)
	for _, opt := range o {
		b = append(b, byte(opt.Type))
	}
	for (len(b)-start)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// Bytes returns the padded encoding of o.
func (o Options) Bytes() []byte {
	return o.AppendTo(make([]byte, 0, o.TotalLength()))
}

// ParseOptions decodes the options area of a header. Type 0 is recorded as
// EndOfOptionsList and stops the scan; whatever follows is padding and is not
// inspected, so [0 0 0 0] yields a single entry.
func ParseOptions(b []byte) (Options, error) {
	var opts Options
	for i := 0; i < len(b); i++ {
		switch t := OptionType(b[i]); t {
		case OptionTypeEndOfList:
			opts.Add(EndOfOptionsList)
			return opts, nil
		case OptionTypeNoOperation:
			opts.Add(NoOperation)
		default:
			return nil, core.NewDecodeError(core.LayerIPv4, core.KindUnknownOption, HeaderLen+i,
				"unknown option type %d", uint8(t))
		}
	}
	return opts, nil
}
