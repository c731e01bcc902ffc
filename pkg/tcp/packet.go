package tcp

import (
	"math"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/checksum"
)

// Packet is a TCP segment: header, options and a borrowed payload.
type Packet struct {
	Header  Header
	Options Options
	Payload []byte

	// wire holds the options area as received by ParsePacket until the
	// segment is re-encoded.
	wire []byte
}

// NewPacket returns a segment with a default header. payload is referenced,
// not copied.
func NewPacket(srcPort, dstPort uint16, payload []byte) *Packet {
	return &Packet{
		Header:  NewHeader(srcPort, dstPort),
		Payload: payload,
	}
}

// UpdateDataOffset sets DataOffset from the encoded option size.
func (p *Packet) UpdateDataOffset() {
	p.Header.DataOffset = uint8(MinDataOffset + p.Options.WordsNeeded())
}

// Length is the segment length used in the pseudo-header.
func (p *Packet) Length() int {
	return int(p.Header.DataOffset)*4 + len(p.Payload)
}

// sum adds header (checksum zeroed), options and payload to a pseudo-header
// sum.
func (p *Packet) sum(pseudo uint32) uint32 {
	h := p.Header
	h.Checksum = 0
	var buf [HeaderLen]byte
	h.put(buf[:])
	s := checksum.Sum(pseudo, buf[:])
	if p.wire != nil {
		s = checksum.Sum(s, p.wire)
	} else {
		s = checksum.Sum(s, p.Options.Bytes())
	}
	return checksum.Sum(s, p.Payload)
}

// ChecksumIPv4 computes the segment checksum under an IPv4 pseudo-header.
// DataOffset must be current.
func (p *Packet) ChecksumIPv4(src, dst address.IPv4) uint16 {
	return checksum.Complete(p.sum(checksum.PseudoHeaderSum(src[:], dst[:], ProtocolNumber, uint32(p.Length()))))
}

// ChecksumIPv6 computes the segment checksum under an IPv6 pseudo-header.
func (p *Packet) ChecksumIPv6(src, dst address.IPv6) uint16 {
	return checksum.Complete(p.sum(checksum.PseudoHeaderSum(src[:], dst[:], ProtocolNumber, uint32(p.Length()))))
}

// VerifyIPv4 reports whether the stored checksum is correct for src/dst. A
// parsed segment is checked against its options area as received.
func (p *Packet) VerifyIPv4(src, dst address.IPv4) bool {
	return p.Header.Checksum == p.ChecksumIPv4(src, dst)
}

// VerifyIPv6 reports whether the stored checksum is correct for src/dst.
func (p *Packet) VerifyIPv6(src, dst address.IPv6) bool {
	return p.Header.Checksum == p.ChecksumIPv6(src, dst)
}

// BytesIPv4 finalizes DataOffset and Checksum for an IPv4 pseudo-header and
// returns header ++ options ++ payload.
func (p *Packet) BytesIPv4(src, dst address.IPv4) ([]byte, error) {
	return p.marshal(func() uint16 { return p.ChecksumIPv4(src, dst) })
}

// BytesIPv6 is BytesIPv4 for an IPv6 pseudo-header.
func (p *Packet) BytesIPv6(src, dst address.IPv6) ([]byte, error) {
	return p.marshal(func() uint16 { return p.ChecksumIPv6(src, dst) })
}

func (p *Packet) marshal(xsum func() uint16) ([]byte, error) {
	if err := p.Options.Validate(); err != nil {
		return nil, err
	}
	words := MinDataOffset + p.Options.WordsNeeded()
	if words > MaxDataOffset {
		return nil, core.NewDecodeError(core.LayerTCP, core.KindFieldOverflow, 12,
			"options need data offset %d, max is %d", words, MaxDataOffset)
	}
	if n := words*4 + len(p.Payload); n > math.MaxUint16 {
		return nil, core.NewDecodeError(core.LayerTCP, core.KindFieldOverflow, 0,
			"segment length %d exceeds 65535", n)
	}

	p.wire = nil
	p.UpdateDataOffset()
	if err := p.Header.validate(); err != nil {
		return nil, err
	}
	p.Header.Checksum = xsum()

	b := make([]byte, HeaderLen, p.Length())
	p.Header.put(b)
	b = p.Options.AppendTo(b)
	return append(b, p.Payload...), nil
}

// ParsePacket decodes a TCP segment. Options come from [20, DataOffset*4) and
// the payload is the rest of b. Options and Payload alias b.
func ParsePacket(b []byte) (*Packet, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if h.DataOffset < MinDataOffset {
		return nil, core.NewDecodeError(core.LayerTCP, core.KindInvalidField, 12,
			"data offset %d below minimum 5", h.DataOffset)
	}
	hl := int(h.DataOffset) * 4
	if hl > len(b) {
		return nil, core.NewDecodeError(core.LayerTCP, core.KindTruncated, len(b),
			"data offset %d needs %d bytes, got %d", h.DataOffset, hl, len(b))
	}

	opts, err := ParseOptions(b[HeaderLen:hl])
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Options: opts, Payload: b[hl:], wire: b[HeaderLen:hl]}, nil
}

// VerifyChecksumIPv4 checks a raw segment as received: the sum over the
// pseudo-header and the whole segment, checksum included, must be all ones.
func VerifyChecksumIPv4(segment []byte, src, dst address.IPv4) bool {
	if len(segment) < HeaderLen {
		return false
	}
	s := checksum.PseudoHeaderSum(src[:], dst[:], ProtocolNumber, uint32(len(segment)))
	return checksum.Complete(checksum.Sum(s, segment)) == 0
}

// VerifyChecksumIPv6 is VerifyChecksumIPv4 for an IPv6 pseudo-header.
func VerifyChecksumIPv6(segment []byte, src, dst address.IPv6) bool {
	if len(segment) < HeaderLen {
		return false
	}
	s := checksum.PseudoHeaderSum(src[:], dst[:], ProtocolNumber, uint32(len(segment)))
	return checksum.Complete(checksum.Sum(s, segment)) == 0
}
