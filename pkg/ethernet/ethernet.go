// Package ethernet implements the 14-byte Ethernet II header and frame codec.
package ethernet

import (
	"encoding/binary"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
)

// HeaderLen is the fixed size of an Ethernet II header.
const HeaderLen = 14

// Header is the link-layer header. Byte layout:
// [0:6) destination, [6:12) source, [12:14) EtherType.
type Header struct {
	Destination address.MAC
	Source      address.MAC
	EtherType   EtherType
}

// ParseHeader reads the first HeaderLen bytes of b positionally.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, core.NewDecodeError(core.LayerEthernet, core.KindTruncated, len(b),
			"header needs %d bytes, got %d", HeaderLen, len(b))
	}

	var h Header
	copy(h.Destination[:], b[0:6])
	copy(h.Source[:], b[6:12])
	h.EtherType = EtherType(binary.BigEndian.Uint16(b[12:14]))
	return h, nil
}

// AppendTo appends the 14 header bytes to b.
func (h Header) AppendTo(b []byte) []byte {
	b = append(b, h.Destination[:]...)
	b = append(b, h.Source[:]...)
	return binary.BigEndian.AppendUint16(b, uint16(h.EtherType))
}

// Bytes returns the 14-byte wire form of h.
func (h Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderLen))
}

// Frame is a header plus a payload borrowed from the caller. The backing
// array of Payload must stay unmodified while the frame is in use.
type Frame struct {
	Header  Header
	Payload []byte
}

// ParseFrame splits b into header and payload. The payload aliases b and is
// not checked against any minimum or maximum Ethernet frame size.
func ParseFrame(b []byte) (Frame, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Payload: b[HeaderLen:]}, nil
}

// Bytes returns header ++ payload in a newly allocated slice.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, HeaderLen+len(f.Payload))
	out = f.Header.AppendTo(out)
	return append(out, f.Payload...)
}
