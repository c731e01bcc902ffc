// Package builder stacks the ethernet, ipv4 and tcp codecs into whole
// packets.
package builder

import (
	"fmt"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/metrics"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/ethernet"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// Builder holds the header defaults applied to new packets. It has no other
// state and may be shared.
type Builder struct {
	ttl    uint8
	window uint16
	mss    uint16
}

// Option customizes a Builder.
type Option func(*Builder)

// WithTTL sets the TTL of new IPv4 packets.
func WithTTL(ttl uint8) Option {
	return func(b *Builder) { b.ttl = ttl }
}

// WithWindow sets the receive window of new TCP segments.
func WithWindow(window uint16) Option {
	return func(b *Builder) { b.window = window }
}

// WithMSS adds an MSS option to new SYN segments. Zero disables it.
func WithMSS(mss uint16) Option {
	return func(b *Builder) { b.mss = mss }
}

// New returns a Builder with TTL 64 and a 65535-byte window.
func New(opts ...Option) *Builder {
	b := &Builder{
		ttl:    ipv4.DefaultTTL,
		window: 65535,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ethernet wraps payload in a frame. payload is referenced, not copied.
func (b *Builder) Ethernet(dst, src address.MAC, etherType ethernet.EtherType, payload []byte) ethernet.Frame {
	return ethernet.Frame{
		Header: ethernet.Header{
			Destination: dst,
			Source:      src,
			EtherType:   etherType,
		},
		Payload: payload,
	}
}

// IPv4 returns an unfinished packet; call Bytes on it or pass it to Frame.
func (b *Builder) IPv4(src, dst address.IPv4, protocol uint8, payload []byte) *ipv4.Packet {
	p := ipv4.NewPacket(src, dst, protocol, payload)
	p.Header.TTL = b.ttl
	return p
}

// TCP returns an unfinished segment.
func (b *Builder) TCP(srcPort, dstPort uint16, payload []byte) *tcp.Packet {
	p := tcp.NewPacket(srcPort, dstPort, payload)
	p.Header.Window = b.window
	return p
}

// SYN returns a SYN segment carrying the configured MSS, if any.
func (b *Builder) SYN(srcPort, dstPort uint16, seq uint32) *tcp.Packet {
	p := b.TCP(srcPort, dstPort, nil)
	p.Header.SequenceNumber = seq
	p.Header.Flags.SYN = true
	if b.mss != 0 {
		p.Options.Add(tcp.MaximumSegmentSize(b.mss))
	}
	return p
}

// TCPOverIPv4 serializes seg under ip's addresses, installs it as ip's
// payload with protocol 6 and returns the finished IPv4 packet.
func (b *Builder) TCPOverIPv4(ip *ipv4.Packet, seg *tcp.Packet) ([]byte, error) {
	segment, err := seg.BytesIPv4(ip.Header.Source, ip.Header.Destination)
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}
	metrics.ObserveEncode(core.LayerTCP)

	ip.Header.Protocol = tcp.ProtocolNumber
	ip.Payload = segment
	return b.encodeIPv4(ip)
}

// Frame serializes ip and wraps it in an Ethernet II frame.
func (b *Builder) Frame(dst, src address.MAC, ip *ipv4.Packet) ([]byte, error) {
	packet, err := b.encodeIPv4(ip)
	if err != nil {
		return nil, err
	}
	return b.encodeFrame(b.Ethernet(dst, src, ethernet.EtherTypeIPv4, packet)), nil
}

// TCPFrame stacks seg, ip and an Ethernet header in one call.
func (b *Builder) TCPFrame(dst, src address.MAC, ip *ipv4.Packet, seg *tcp.Packet) ([]byte, error) {
	packet, err := b.TCPOverIPv4(ip, seg)
	if err != nil {
		return nil, err
	}
	return b.encodeFrame(b.Ethernet(dst, src, ethernet.EtherTypeIPv4, packet)), nil
}

func (b *Builder) encodeIPv4(ip *ipv4.Packet) ([]byte, error) {
	out, err := ip.Bytes()
	if err != nil {
		return nil, fmt.Errorf("ipv4: %w", err)
	}
	metrics.ObserveEncode(core.LayerIPv4)
	metrics.PayloadBytes.WithLabelValues(metrics.OpEncode).Observe(float64(len(ip.Payload)))
	return out, nil
}

func (b *Builder) encodeFrame(f ethernet.Frame) []byte {
	metrics.ObserveEncode(core.LayerEthernet)
	return f.Bytes()
}
