package ipv4

import (
	"math"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/checksum"
)

// Packet is an IPv4 header with its options and a borrowed payload.
type Packet struct {
	Header  Header
	Options Options
	Payload []byte

	// wire holds the options area as received by ParsePacket, padding
	// included, until Bytes re-encodes the header.
	wire []byte
}

// NewPacket returns a packet with a default header for protocol. payload is
// referenced, not copied.
func NewPacket(src, dst address.IPv4, protocol uint8, payload []byte) *Packet {
	return &Packet{
		Header:  NewHeader(src, dst, protocol),
		Payload: payload,
	}
}

// HeaderLength is the header size in bytes implied by the current options.
func (p *Packet) HeaderLength() int {
	return HeaderLen + p.Options.TotalLength()
}

// UpdateIHL sets IHL from the encoded option size.
func (p *Packet) UpdateIHL() {
	p.Header.IHL = uint8(MinIHL + p.Options.WordsNeeded())
}

// UpdateTotalLength sets TotalLength to header plus payload. IHL must be
// current; call UpdateIHL first.
func (p *Packet) UpdateTotalLength() {
	p.Header.TotalLength = uint16(int(p.Header.IHL)*4 + len(p.Payload))
}

// HeaderChecksum computes the checksum over header and options with the
// checksum field taken as zero. It does not modify p.
func (p *Packet) HeaderChecksum() uint16 {
	h := p.Header
	h.Checksum = 0
	var buf [HeaderLen]byte
	h.put(buf[:])
	sum := checksum.Sum(0, buf[:])
	if p.wire != nil {
		sum = checksum.Sum(sum, p.wire)
	} else {
		sum = checksum.Sum(sum, p.Options.Bytes())
	}
	return checksum.Complete(sum)
}

// VerifyChecksum reports whether the stored checksum matches the header and
// options. A parsed packet is checked against its options area as received,
// so bytes after an EOL still count.
func (p *Packet) VerifyChecksum() bool {
	return p.Header.Checksum == p.HeaderChecksum()
}

// Bytes finalizes the header and returns header ++ options ++ payload.
// IHL, TotalLength and Checksum are rewritten in place.
func (p *Packet) Bytes() ([]byte, error) {
	if err := p.Options.Validate(); err != nil {
		return nil, err
	}
	words := MinIHL + p.Options.WordsNeeded()
	if words > MaxIHL {
		return nil, core.NewDecodeError(core.LayerIPv4, core.KindFieldOverflow, 0,
			"options need IHL %d, max is %d", words, MaxIHL)
	}
	total := words*4 + len(p.Payload)
	if total > math.MaxUint16 {
		return nil, core.NewDecodeError(core.LayerIPv4, core.KindFieldOverflow, 2,
			"total length %d exceeds 65535", total)
	}

	p.wire = nil
	p.UpdateIHL()
	p.UpdateTotalLength()
	if err := p.Header.validate(); err != nil {
		return nil, err
	}

	b := make([]byte, HeaderLen, total)
	p.Header.Checksum = 0
	p.Header.put(b)
	b = p.Options.AppendTo(b)

	p.Header.Checksum = checksum.Checksum(b)
	checksum.Put(b[checksumOffset:], p.Header.Checksum)

	return append(b, p.Payload...), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Packet) MarshalBinary() ([]byte, error) {
	return p.Bytes()
}

// ParsePacket decodes a full IPv4 packet. Options come from [20, IHL*4) and
// the payload from [IHL*4, TotalLength); bytes past TotalLength (link-layer
// padding) are ignored. Options and Payload alias b.
func ParsePacket(b []byte) (*Packet, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}

	hl := int(h.IHL) * 4
	if len(b) < hl {
		return nil, core.NewDecodeError(core.LayerIPv4, core.KindTruncated, len(b),
			"IHL %d needs %d bytes, got %d", h.IHL, hl, len(b))
	}
	total := int(h.TotalLength)
	if total < hl {
		return nil, core.NewDecodeError(core.LayerIPv4, core.KindInvalidField, 2,
			"total length %d shorter than header length %d", total, hl)
	}
	if total > len(b) {
		return nil, core.NewDecodeError(core.LayerIPv4, core.KindTruncated, len(b),
			"total length %d exceeds available %d bytes", total, len(b))
	}

	opts, err := ParseOptions(b[HeaderLen:hl])
	if err != nil {
		return nil, err
	}

	return &Packet{
		Header:  h,
		Options: opts,
		Payload: b[hl:total],
		wire:    b[HeaderLen:hl],
	}, nil
}

// VerifyHeaderChecksum checks the checksum of a raw header as received: the
// one's-complement sum over the first IHL*4 bytes, checksum included, must be
// all ones.
func VerifyHeaderChecksum(b []byte) bool {
	if len(b) < HeaderLen {
		return false
	}
	hl := int(b[0]&0x0F) * 4
	if hl < HeaderLen || hl > len(b) {
		return false
	}
	return checksum.Checksum(b[:hl]) == 0
}

// PayloadLength returns TotalLength minus the header length, or 0 if the
// header is inconsistent.
func (h *Header) PayloadLength() int {
	n := int(h.TotalLength) - int(h.IHL)*4
	if n < 0 {
		return 0
	}
	return n
}
