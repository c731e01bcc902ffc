package tcp

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/pktbuilder/internal/core"
)

// OptionKind is the option kind octet.
type OptionKind uint8

const (
	OptionKindEndOfList          OptionKind = 0
	OptionKindNoOperation        OptionKind = 1
	OptionKindMaximumSegmentSize OptionKind = 2

	mssOptionLen = 4
)

// Option is one TCP option record. MSS is meaningful only for
// OptionKindMaximumSegmentSize.
type Option struct {
	Kind OptionKind
	MSS  uint16
}

var (
	EndOfOptionList = Option{Kind: OptionKindEndOfList}
	NoOperation     = Option{Kind: OptionKindNoOperation}
)

// MaximumSegmentSize returns an MSS option carrying v.
func MaximumSegmentSize(v uint16) Option {
	return Option{Kind: OptionKindMaximumSegmentSize, MSS: v}
}

// Len is the encoded size of o in bytes.
func (o Option) Len() int {
	if o.Kind == OptionKindMaximumSegmentSize {
		return mssOptionLen
	}
	return 1
}

func (o Option) appendTo(b []byte) []byte {
	switch o.Kind {
	case OptionKindMaximumSegmentSize:
		b = append(b, byte(o.Kind), mssOptionLen)
		return binary.BigEndian.AppendUint16(b, o.MSS)
	default:
		return append(b, byte(o.Kind))
	}
}

func (o Option) String() string {
	switch o.Kind {
	case OptionKindEndOfList:
		return "EOL"
	case OptionKindNoOperation:
		return "NOP"
	case OptionKindMaximumSegmentSize:
		return fmt.Sprintf("MSS(%d)", o.MSS)
	default:
		return fmt.Sprintf("Kind(%d)", uint8(o.Kind))
	}
}

// Options is an ordered list of option records.
type Options []Option

// Add appends opt without ordering checks.
func (o *Options) Add(opt Option) {
	*o = append(*o, opt)
}

// TotalLength is the unpadded encoded size.
func (o Options) TotalLength() int {
	n := 0
	for _, opt := range o {
		n += opt.Len()
	}
	return n
}

// WordsNeeded is the number of 32-bit words the options occupy, rounded up.
func (o Options) WordsNeeded() int {
	return (o.TotalLength() + 3) / 4
}

// MSS returns the first MSS option value, if any.
func (o Options) MSS() (uint16, bool) {
	for _, opt := range o {
		if opt.Kind == OptionKindMaximumSegmentSize {
			return opt.MSS, true
		}
	}
	return 0, false
}

// Validate rejects option kinds the encoder cannot represent. Offsets are
// relative to the start of the header.
func (o Options) Validate() error {
	off := HeaderLen
	for _, opt := range o {
		switch opt.Kind {
		case OptionKindEndOfList, OptionKindNoOperation, OptionKindMaximumSegmentSize:
		default:
			return core.NewDecodeError(core.LayerTCP, core.KindUnknownOption, off,
				"unknown option kind %d", uint8(opt.Kind))
		}
		off += opt.Len()
	}
	return nil
}

// AppendTo appends the encoded options and zero padding to a 4-byte boundary.
func (o Options) AppendTo(b []byte) []byte {
	start := len(b)
	for _, opt := range o {
		b = opt.appendTo(b)
	}
	for (len(b)-start)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// Bytes returns the padded encoding of o.
func (o Options) Bytes() []byte {
	return o.AppendTo(make([]byte, 0, o.WordsNeeded()*4))
}

// ParseOptions decodes the options area. A zero byte ends the scan and is not
// recorded, so trailing padding never shows up as an option.
func ParseOptions(b []byte) (Options, error) {
	var opts Options
	for i := 0; i < len(b); {
		switch kind := OptionKind(b[i]); kind {
		case OptionKindEndOfList:
			return opts, nil
		case OptionKindNoOperation:
			opts.Add(NoOperation)
			i++
		case OptionKindMaximumSegmentSize:
			if len(b)-i < mssOptionLen || b[i+1] != mssOptionLen {
				return nil, core.NewDecodeError(core.LayerTCP, core.KindTruncatedOption, HeaderLen+i,
					"MSS option needs length %d", mssOptionLen)
			}
			opts.Add(MaximumSegmentSize(binary.BigEndian.Uint16(b[i+2 : i+4])))
			i += mssOptionLen
		default:
			return nil, core.NewDecodeError(core.LayerTCP, core.KindUnknownOption, HeaderLen+i,
				"unknown option kind %d", uint8(kind))
		}
	}
	return opts, nil
}
