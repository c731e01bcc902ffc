package decoder

import (
	"encoding/binary"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/ipv4"
)

const ipv6HeaderLen = 40

// IPv6Header is the fixed IPv6 header, enough to reach a TCP segment and
// build its pseudo-header. Extension headers are not walked.
type IPv6Header struct {
	TrafficClass  uint8
	FlowLabel     uint32
	PayloadLength uint16
	NextHeader    uint8
	HopLimit      uint8
	Source        address.IPv6
	Destination   address.IPv6
}

// decodeIPv6 returns the header and the payload bounded by PayloadLength.
func decodeIPv6(data []byte) (IPv6Header, []byte, error) {
	if len(data) < ipv6HeaderLen {
		return IPv6Header{}, nil, core.NewDecodeError(core.LayerIPv6, core.KindTruncated, len(data),
			"header needs %d bytes, got %d", ipv6HeaderLen, len(data))
	}
	if v := data[0] >> 4; v != 6 {
		return IPv6Header{}, nil, core.NewDecodeError(core.LayerIPv6, core.KindInvalidField, 0,
			"version %d, want 6", v)
	}

	word := binary.BigEndian.Uint32(data[0:4])
	h := IPv6Header{
		TrafficClass:  uint8(word >> 20),
		FlowLabel:     word & 0x000FFFFF,
		PayloadLength: binary.BigEndian.Uint16(data[4:6]),
		NextHeader:    data[6],
		HopLimit:      data[7],
	}
	copy(h.Source[:], data[8:24])
	copy(h.Destination[:], data[24:40])

	end := ipv6HeaderLen + int(h.PayloadLength)
	if end > len(data) {
		return h, nil, core.NewDecodeError(core.LayerIPv6, core.KindTruncated, len(data),
			"payload length %d exceeds available %d bytes", h.PayloadLength, len(data)-ipv6HeaderLen)
	}
	return h, data[ipv6HeaderLen:end], nil
}

// isIPFragment reports whether h belongs to a fragmented datagram; the
// transport header can only be trusted in an unfragmented one.
func isIPFragment(h ipv4.Header) bool {
	return h.Flags.MoreFragments || h.FragmentOffset != 0
}
