// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"errors"
	"time"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/metrics"
	"firestige.xyz/pktbuilder/pkg/ethernet"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// Decoder decodes raw frames into structured form.
type Decoder interface {
	Decode(raw core.RawPacket) (*Packet, error)
}

// Config controls a StandardDecoder.
type Config struct {
	VerifyChecksums bool
	MaxVLANDepth    int // 0 = unlimited
}

// ChecksumStatus is the outcome of a checksum check.
type ChecksumStatus uint8

const (
	ChecksumUnchecked ChecksumStatus = iota
	ChecksumValid
	ChecksumInvalid
)

func (s ChecksumStatus) String() string {
	switch s {
	case ChecksumValid:
		return "valid"
	case ChecksumInvalid:
		return "invalid"
	default:
		return "unchecked"
	}
}

// Packet is a decoded frame. Layers that were absent or not understood are
// nil; Payload is the innermost undecoded bytes.
type Packet struct {
	Timestamp  time.Time
	CaptureLen uint32
	OrigLen    uint32

	Ethernet ethernet.Header // EtherType is the one after any VLAN tags
	VLANs    []uint16

	IPv4 *ipv4.Packet
	IPv6 *IPv6Header
	TCP  *tcp.Packet

	Payload []byte

	IPv4Checksum ChecksumStatus
	TCPChecksum  ChecksumStatus
}

// StandardDecoder decodes Ethernet, optional VLAN tags, IPv4 or IPv6 and TCP.
// Other protocols stop the walk and are left in Payload.
type StandardDecoder struct {
	cfg Config
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	return &StandardDecoder{cfg: cfg}
}

// Decode walks the layers of raw.Data. The returned Packet aliases raw.Data.
func (d *StandardDecoder) Decode(raw core.RawPacket) (*Packet, error) {
	pkt := &Packet{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	eth, vlans, payload, err := decodeEthernet(raw.Data, d.cfg.MaxVLANDepth)
	if err != nil {
		return nil, observeError(core.LayerEthernet, err)
	}
	metrics.ObserveDecode(core.LayerEthernet)
	pkt.Ethernet = eth
	pkt.VLANs = vlans
	pkt.Payload = payload

	switch eth.EtherType {
	case ethernet.EtherTypeIPv4:
		return d.decodeIPv4(pkt, payload)
	case ethernet.EtherTypeIPv6:
		return d.decodeIPv6(pkt, payload)
	default:
		return pkt, nil
	}
}

func (d *StandardDecoder) decodeIPv4(pkt *Packet, data []byte) (*Packet, error) {
	ip, err := ipv4.ParsePacket(data)
	if err != nil {
		return nil, observeError(core.LayerIPv4, err)
	}
	metrics.ObserveDecode(core.LayerIPv4)
	pkt.IPv4 = ip
	pkt.Payload = ip.Payload

	if d.cfg.VerifyChecksums {
		pkt.IPv4Checksum = verified(core.LayerIPv4, ipv4.VerifyHeaderChecksum(data))
	}

	if ip.Header.Protocol != tcp.ProtocolNumber || isIPFragment(ip.Header) {
		return pkt, nil
	}

	seg, err := decodeTCP(ip.Payload)
	if err != nil {
		return nil, observeError(core.LayerTCP, err)
	}
	pkt.TCP = seg
	pkt.Payload = seg.Payload

	if d.cfg.VerifyChecksums {
		pkt.TCPChecksum = verified(core.LayerTCP,
			tcp.VerifyChecksumIPv4(ip.Payload, ip.Header.Source, ip.Header.Destination))
	}
	return pkt, nil
}

func (d *StandardDecoder) decodeIPv6(pkt *Packet, data []byte) (*Packet, error) {
	h, payload, err := decodeIPv6(data)
	if err != nil {
		return nil, observeError(core.LayerIPv6, err)
	}
	metrics.ObserveDecode(core.LayerIPv6)
	pkt.IPv6 = &h
	pkt.Payload = payload

	if h.NextHeader != tcp.ProtocolNumber {
		return pkt, nil
	}

	seg, err := decodeTCP(payload)
	if err != nil {
		return nil, observeError(core.LayerTCP, err)
	}
	pkt.TCP = seg
	pkt.Payload = seg.Payload

	if d.cfg.VerifyChecksums {
		pkt.TCPChecksum = verified(core.LayerTCP,
			tcp.VerifyChecksumIPv6(payload, h.Source, h.Destination))
	}
	return pkt, nil
}

func verified(layer string, ok bool) ChecksumStatus {
	if ok {
		return ChecksumValid
	}
	metrics.ChecksumMismatchTotal.WithLabelValues(layer).Inc()
	return ChecksumInvalid
}

// observeError counts err under its own layer and kind when it is a
// DecodeError, else under the given layer.
func observeError(layer string, err error) error {
	kind := "other"
	var de *core.DecodeError
	if errors.As(err, &de) {
		layer = de.Layer
		kind = de.Kind.String()
	}
	metrics.ObserveDecodeError(layer, kind)
	return err
}
