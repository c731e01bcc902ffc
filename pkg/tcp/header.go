// Package tcp implements the RFC 9293 header, options and segment codec.
package tcp

import (
	"encoding/binary"

	"firestige.xyz/pktbuilder/internal/core"
)

const (
	HeaderLen     = 20
	MinDataOffset = 5
	MaxDataOffset = 15
	MaxReserved   = 0x07

	// ProtocolNumber is the IP protocol number carried in the pseudo-header.
	ProtocolNumber = 6

	checksumOffset = 16
)

// Header is the fixed 20-byte TCP header.
type Header struct {
	SourcePort           uint16
	DestinationPort      uint16
	SequenceNumber       uint32
	AcknowledgmentNumber uint32
	DataOffset           uint8 // header length in 32-bit words, options included
	Reserved             uint8 // low three bits of byte 12
	Flags                Flags
	Window               uint16
	Checksum             uint16
	UrgentPointer        uint16
}

// NewHeader returns a header for the given ports with DataOffset 5.
func NewHeader(srcPort, dstPort uint16) Header {
	return Header{
		SourcePort:      srcPort,
		DestinationPort: dstPort,
		DataOffset:      MinDataOffset,
	}
}

func (h *Header) validate() error {
	if h.DataOffset > MaxDataOffset {
		return core.NewDecodeError(core.LayerTCP, core.KindFieldOverflow, 12, "data offset %d exceeds 4 bits", h.DataOffset)
	}
	if h.Reserved > MaxReserved {
		return core.NewDecodeError(core.LayerTCP, core.KindFieldOverflow, 12, "reserved %d exceeds 3 bits", h.Reserved)
	}
	return nil
}

func (h *Header) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], h.SourcePort)
	binary.BigEndian.PutUint16(b[2:4], h.DestinationPort)
	binary.BigEndian.PutUint32(b[4:8], h.SequenceNumber)
	binary.BigEndian.PutUint32(b[8:12], h.AcknowledgmentNumber)
	b[12] = h.DataOffset<<4 | h.Reserved&MaxReserved
	b[13] = h.Flags.Byte()
	binary.BigEndian.PutUint16(b[14:16], h.Window)
	binary.BigEndian.PutUint16(b[16:18], h.Checksum)
	binary.BigEndian.PutUint16(b[18:20], h.UrgentPointer)
}

// Bytes returns the 20-byte wire form of h.
func (h *Header) Bytes() ([]byte, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	b := make([]byte, HeaderLen)
	h.put(b)
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.Bytes()
}

// ParseHeader decodes the fixed header from the first 20 bytes of b. Bits 3
// and 4 of byte 12, which belong to neither field, are ignored.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, core.NewDecodeError(core.LayerTCP, core.KindTruncated, len(b),
			"header needs %d bytes, got %d", HeaderLen, len(b))
	}
	return Header{
		SourcePort:           binary.BigEndian.Uint16(b[0:2]),
		DestinationPort:      binary.BigEndian.Uint16(b[2:4]),
		SequenceNumber:       binary.BigEndian.Uint32(b[4:8]),
		AcknowledgmentNumber: binary.BigEndian.Uint32(b[8:12]),
		DataOffset:           b[12] >> 4,
		Reserved:             b[12] & MaxReserved,
		Flags:                FlagsFromByte(b[13]),
		Window:               binary.BigEndian.Uint16(b[14:16]),
		Checksum:             binary.BigEndian.Uint16(b[16:18]),
		UrgentPointer:        binary.BigEndian.Uint16(b[18:20]),
	}, nil
}
