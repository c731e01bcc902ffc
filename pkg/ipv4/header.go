// Package ipv4 implements the RFC 791 header, options and packet codec.
package ipv4

import (
	"encoding/binary"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
)

const (
	// HeaderLen is the size of the fixed header without options.
	HeaderLen = 20
	// MinIHL is the IHL of a header without options.
	MinIHL = 5
	// MaxIHL is the largest value the 4-bit IHL field holds.
	MaxIHL = 15

	Version    = 4
	DefaultTTL = 64

	checksumOffset = 10
)

// Header is the fixed 20-byte IPv4 header.
type Header struct {
	Version        uint8
	IHL            uint8 // header length in 32-bit words, options included
	TOS            uint8
	TotalLength    uint16
	Identification uint16
	Flags          Flags
	FragmentOffset uint16 // 13 bits, units of 8 bytes
	TTL            uint8
	Protocol       uint8
	Checksum       uint16
	Source         address.IPv4
	Destination    address.IPv4
}

// NewHeader returns a header with version 4, IHL 5 and the default TTL.
// Length and checksum are filled in when the owning Packet is marshaled.
func NewHeader(src, dst address.IPv4, protocol uint8) Header {
	return Header{
		Version:     Version,
		IHL:         MinIHL,
		TTL:         DefaultTTL,
		Protocol:    protocol,
		Source:      src,
		Destination: dst,
	}
}

// validate rejects values wider than their wire fields.
func (h *Header) validate() error {
	if h.Version > 0x0F {
		return core.NewDecodeError(core.LayerIPv4, core.KindFieldOverflow, 0, "version %d exceeds 4 bits", h.Version)
	}
	if h.IHL > MaxIHL {
		return core.NewDecodeError(core.LayerIPv4, core.KindFieldOverflow, 0, "IHL %d exceeds 4 bits", h.IHL)
	}
	if h.FragmentOffset > fragmentOffsetMask {
		return core.NewDecodeError(core.LayerIPv4, core.KindFieldOverflow, 6, "fragment offset %d exceeds 13 bits", h.FragmentOffset)
	}
	return nil
}

// put writes the 20 header bytes into b, which must hold at least HeaderLen.
func (h *Header) put(b []byte) {
	b[0] = h.Version<<4 | h.IHL&0x0F
	b[1] = h.TOS
	binary.BigEndian.PutUint16(b[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(b[4:6], h.Identification)
	binary.BigEndian.PutUint16(b[6:8], h.Flags.Pack(h.FragmentOffset))
	b[8] = h.TTL
	b[9] = h.Protocol
	binary.BigEndian.PutUint16(b[10:12], h.Checksum)
	copy(b[12:16], h.Source[:])
	copy(b[16:20], h.Destination[:])
}

// MarshalBinary returns the 20-byte wire form of h. Fields wider than their
// bit width are reported as KindFieldOverflow instead of being masked.
func (h *Header) MarshalBinary() ([]byte, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	b := make([]byte, HeaderLen)
	h.put(b)
	return b, nil
}

// Bytes is MarshalBinary under the name the other codecs use.
func (h *Header) Bytes() ([]byte, error) {
	return h.MarshalBinary()
}

// ParseHeader decodes the fixed header from the first 20 bytes of b. Options
// and payload are left to ParsePacket.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, core.NewDecodeError(core.LayerIPv4, core.KindTruncated, len(b),
			"header needs %d bytes, got %d", HeaderLen, len(b))
	}

	version := b[0] >> 4
	ihl := b[0] & 0x0F
	if version != Version {
		return Header{}, core.NewDecodeError(core.LayerIPv4, core.KindInvalidField, 0, "version %d, want 4", version)
	}
	if ihl < MinIHL {
		return Header{}, core.NewDecodeError(core.LayerIPv4, core.KindInvalidField, 0, "IHL %d below minimum 5", ihl)
	}

	h := Header{
		Version:        version,
		IHL:            ihl,
		TOS:            b[1],
		TotalLength:    binary.BigEndian.Uint16(b[2:4]),
		Identification: binary.BigEndian.Uint16(b[4:6]),
		TTL:            b[8],
		Protocol:       b[9],
		Checksum:       binary.BigEndian.Uint16(b[10:12]),
	}
	h.Flags, h.FragmentOffset = UnpackFlags(binary.BigEndian.Uint16(b[6:8]))
	copy(h.Source[:], b[12:16])
	copy(h.Destination[:], b[16:20])
	return h, nil
}
