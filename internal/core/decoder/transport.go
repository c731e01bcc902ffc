package decoder

import (
	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/metrics"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// decodeTCP decodes a TCP segment, options included.
func decodeTCP(data []byte) (*tcp.Packet, error) {
	seg, err := tcp.ParsePacket(data)
	if err != nil {
		return nil, err
	}
	metrics.ObserveDecode(core.LayerTCP)
	metrics.PayloadBytes.WithLabelValues(metrics.OpDecode).Observe(float64(len(seg.Payload)))
	return seg, nil
}
