package tcp

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/checksum"
)

var (
	srcIP = address.IPv4{192, 168, 1, 100}
	dstIP = address.IPv4{192, 168, 1, 1}

	srcIP6 = address.IPv6{0x20, 0x01, 0x0d, 0xb8, 15: 0x01}
	dstIP6 = address.IPv6{0x20, 0x01, 0x0d, 0xb8, 15: 0x02}
)

func synWithMSS() *Packet {
	p := NewPacket(12345, 80, nil)
	p.Header.SequenceNumber = 0x12345678
	p.Header.Window = 65535
	p.Header.Flags.SYN = true
	p.Options.Add(MaximumSegmentSize(1460))
	return p
}

func TestFlagsByte(t *testing.T) {
	tests := []struct {
		flags Flags
		want  uint8
	}{
		{Flags{}, 0x00},
		{Flags{FIN: true}, 0x01},
		{Flags{SYN: true}, 0x02},
		{Flags{RST: true}, 0x04},
		{Flags{PSH: true}, 0x08},
		{Flags{ACK: true}, 0x10},
		{Flags{URG: true}, 0x20},
		{Flags{ECE: true}, 0x40},
		{Flags{CWR: true}, 0x80},
		{Flags{SYN: true, ACK: true}, 0x12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.flags.Byte(), tt.flags.String())
		assert.Equal(t, tt.flags, FlagsFromByte(tt.want))
	}
}

func TestParseFlags(t *testing.T) {
	f, ok := ParseFlags("syn, ACK")
	require.True(t, ok)
	assert.Equal(t, Flags{SYN: true, ACK: true}, f)
	assert.Equal(t, "ACK|SYN", f.String())

	f, ok = ParseFlags("")
	require.True(t, ok)
	assert.Equal(t, "none", f.String())

	_, ok = ParseFlags("syn,bogus")
	assert.False(t, ok)
}

func TestOptionsEncoding(t *testing.T) {
	var opts Options
	opts.Add(NoOperation)
	opts.Add(MaximumSegmentSize(1460))

	assert.Equal(t, 5, opts.TotalLength())
	assert.Equal(t, 2, opts.WordsNeeded())
	assert.Equal(t, []byte{1, 2, 4, 0x05, 0xb4, 0, 0, 0}, opts.Bytes())

	mss, ok := opts.MSS()
	assert.True(t, ok)
	assert.Equal(t, uint16(1460), mss)

	opts = Options{EndOfOptionList}
	assert.Equal(t, 1, opts.TotalLength())
	assert.Equal(t, 1, opts.WordsNeeded())
	assert.Equal(t, []byte{0, 0, 0, 0}, opts.Bytes())
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]byte{1, 2, 4, 0x05, 0xb4, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, Options{NoOperation, MaximumSegmentSize(1460)}, opts)

	// A leading zero ends the list without being recorded.
	opts, err = ParseOptions([]byte{0, 1, 1, 1})
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = ParseOptions([]byte{2, 4, 0x02, 0x18})
	require.NoError(t, err)
	assert.Equal(t, Options{MaximumSegmentSize(536)}, opts)
}

func TestParseOptionsFailures(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		target error
		offset int
	}{
		{"MSS wrong length", []byte{2, 3, 0x05, 0xb4}, core.ErrTruncatedOption, 20},
		{"MSS cut short", []byte{1, 2, 4, 0x05}, core.ErrTruncatedOption, 21},
		{"MSS kind only", []byte{2}, core.ErrTruncatedOption, 20},
		{"unknown kind", []byte{1, 8, 10, 0}, core.ErrUnknownOption, 21},
		{"unknown kind 255", []byte{255, 0, 0, 0}, core.ErrUnknownOption, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))

			var de *core.DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, core.LayerTCP, de.Layer)
			assert.Equal(t, tt.offset, de.Offset)
		})
	}
}

func TestSYNWithMSS(t *testing.T) {
	p := synWithMSS()
	b, err := p.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)

	require.Len(t, b, 24)
	assert.Equal(t, uint16(12345), binary.BigEndian.Uint16(b[0:2]))
	assert.Equal(t, uint16(80), binary.BigEndian.Uint16(b[2:4]))
	assert.Equal(t, uint32(0x12345678), binary.BigEndian.Uint32(b[4:8]))
	assert.Equal(t, byte(0x60), b[12])
	assert.Equal(t, byte(0x02), b[13])
	assert.Equal(t, uint16(65535), binary.BigEndian.Uint16(b[14:16]))
	assert.Equal(t, []byte{0x02, 0x04, 0x05, 0xb4}, b[20:24])
	assert.NotZero(t, p.Header.Checksum)
	assert.Equal(t, p.Header.Checksum, binary.BigEndian.Uint16(b[16:18]))
	assert.Equal(t, uint8(6), p.Header.DataOffset)

	assert.True(t, VerifyChecksumIPv4(b, srcIP, dstIP))
	assert.True(t, p.VerifyIPv4(srcIP, dstIP))
	assert.False(t, VerifyChecksumIPv4(b, srcIP, address.IPv4{10, 0, 0, 1}))
}

func TestChecksumMatchesConcatenatedPseudoHeader(t *testing.T) {
	p := NewPacket(443, 51000, []byte("odd"))
	p.Header.Flags = Flags{ACK: true, PSH: true}
	b, err := p.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)

	pseudo := make([]byte, 0, 12+len(b))
	pseudo = append(pseudo, srcIP[:]...)
	pseudo = append(pseudo, dstIP[:]...)
	pseudo = append(pseudo, 0, ProtocolNumber)
	pseudo = binary.BigEndian.AppendUint16(pseudo, uint16(len(b)))
	pseudo = append(pseudo, b...)
	assert.Zero(t, checksum.Checksum(pseudo))
}

func TestIPv6Checksum(t *testing.T) {
	p := synWithMSS()
	p.Payload = []byte("hello")
	b, err := p.BytesIPv6(srcIP6, dstIP6)
	require.NoError(t, err)

	assert.True(t, VerifyChecksumIPv6(b, srcIP6, dstIP6))
	assert.True(t, p.VerifyIPv6(srcIP6, dstIP6))
	assert.False(t, VerifyChecksumIPv6(b, srcIP6, address.IPv6{15: 1}))
}

func TestRoundTrip(t *testing.T) {
	p := NewPacket(1024, 8080, []byte("GET / HTTP/1.1\r\n\r\n"))
	p.Header.SequenceNumber = 1
	p.Header.AcknowledgmentNumber = 0xdeadbeef
	p.Header.Reserved = 5
	p.Header.Flags = Flags{ACK: true, PSH: true}
	p.Header.Window = 512
	p.Header.UrgentPointer = 7
	p.Options.Add(NoOperation)
	p.Options.Add(MaximumSegmentSize(1460))

	b, err := p.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)
	assert.Equal(t, byte(0x75), b[12])

	got, err := ParsePacket(b)
	require.NoError(t, err)
	assert.Equal(t, p.Header, got.Header)
	assert.Equal(t, p.Options, got.Options)
	assert.Equal(t, p.Payload, got.Payload)
	assert.True(t, got.VerifyIPv4(srcIP, dstIP))
}

func TestBytesFieldOverflow(t *testing.T) {
	p := NewPacket(1, 2, nil)
	for i := 0; i < 41; i++ {
		p.Options.Add(NoOperation)
	}
	_, err := p.BytesIPv4(srcIP, dstIP)
	assert.True(t, errors.Is(err, core.ErrFieldOverflow))

	p = NewPacket(1, 2, nil)
	p.Header.Reserved = 8
	_, err = p.BytesIPv4(srcIP, dstIP)
	assert.True(t, errors.Is(err, core.ErrFieldOverflow))

	h := NewHeader(1, 2)
	h.DataOffset = 16
	_, err = h.Bytes()
	assert.True(t, errors.Is(err, core.ErrFieldOverflow))
}

func TestParseFailures(t *testing.T) {
	valid, err := synWithMSS().BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		target error
	}{
		{"short header", func(b []byte) []byte { return b[:19] }, core.ErrPacketTooShort},
		{"data offset below 5", func(b []byte) []byte { b[12] = 0x40; return b }, core.ErrInvalidField},
		{"data offset beyond buffer", func(b []byte) []byte { b[12] = 0x70; return b }, core.ErrPacketTooShort},
		{"bad MSS length", func(b []byte) []byte { b[21] = 5; return b }, core.ErrTruncatedOption},
		{"unknown option", func(b []byte) []byte { b[20] = 30; return b }, core.ErrUnknownOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), valid...)
			_, err := ParsePacket(tt.mutate(b))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
		})
	}
}

func gopacketTCP(p *Packet) *layers.TCP {
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(p.Header.SourcePort),
		DstPort: layers.TCPPort(p.Header.DestinationPort),
		Seq:     p.Header.SequenceNumber,
		Ack:     p.Header.AcknowledgmentNumber,
		SYN:     p.Header.Flags.SYN,
		ACK:     p.Header.Flags.ACK,
		PSH:     p.Header.Flags.PSH,
		Window:  p.Header.Window,
		Urgent:  p.Header.UrgentPointer,
	}
	if mss, ok := p.Options.MSS(); ok {
		tcp.Options = append(tcp.Options, layers.TCPOption{
			OptionType:   layers.TCPOptionKindMSS,
			OptionLength: 4,
			OptionData:   binary.BigEndian.AppendUint16(nil, mss),
		})
	}
	return tcp
}

func TestCrossCheckGopacketIPv4(t *testing.T) {
	p := synWithMSS()
	p.Payload = []byte("payload")
	want, err := p.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)

	tcp := gopacketTCP(p)
	require.NoError(t, tcp.SetNetworkLayerForChecksum(&layers.IPv4{
		SrcIP:    net.IP(srcIP[:]),
		DstIP:    net.IP(dstIP[:]),
		Protocol: layers.IPProtocolTCP,
	}))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, tcp, gopacket.Payload(p.Payload)))
	assert.Equal(t, want, buf.Bytes())

	var decoded layers.TCP
	require.NoError(t, decoded.DecodeFromBytes(want, gopacket.NilDecodeFeedback))
	assert.Equal(t, p.Header.Checksum, decoded.Checksum)
	assert.Equal(t, uint8(6), decoded.DataOffset)
	assert.True(t, decoded.SYN)
	require.Len(t, decoded.Options, 1)
	assert.Equal(t, layers.TCPOptionKind(layers.TCPOptionKindMSS), decoded.Options[0].OptionType)
	assert.Equal(t, []byte("payload"), decoded.Payload)
}

func TestCrossCheckGopacketIPv6(t *testing.T) {
	p := NewPacket(40000, 22, []byte("ssh"))
	p.Header.Flags.ACK = true
	p.Header.AcknowledgmentNumber = 99
	want, err := p.BytesIPv6(srcIP6, dstIP6)
	require.NoError(t, err)

	tcp := gopacketTCP(p)
	require.NoError(t, tcp.SetNetworkLayerForChecksum(&layers.IPv6{
		SrcIP:      net.IP(srcIP6[:]),
		DstIP:      net.IP(dstIP6[:]),
		NextHeader: layers.IPProtocolTCP,
	}))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, tcp, gopacket.Payload(p.Payload)))
	assert.Equal(t, want, buf.Bytes())
}

func BenchmarkBytesIPv4(b *testing.B) {
	p := synWithMSS()
	p.Payload = make([]byte, 1400)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = p.BytesIPv4(srcIP, dstIP)
	}
}

func TestBytesRejectsUnknownOptionKind(t *testing.T) {
	p := NewPacket(1, 2, nil)
	p.Options.Add(MaximumSegmentSize(1460))
	p.Options.Add(Option{Kind: 99})

	b, err := p.BytesIPv4(srcIP, dstIP)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, core.ErrUnknownOption))

	var de *core.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, core.LayerTCP, de.Layer)
	assert.Equal(t, 24, de.Offset)
	assert.Equal(t, uint8(MinDataOffset), p.Header.DataOffset, "header must not be touched")

	_, err = p.BytesIPv6(srcIP6, dstIP6)
	assert.True(t, errors.Is(err, core.ErrUnknownOption))
}

func TestParsedSegmentVerifiesOptionsAsReceived(t *testing.T) {
	p := NewPacket(1, 2, []byte("x"))
	p.Options.Add(NoOperation)
	p.Options.Add(EndOfOptionList)
	b, err := p.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)

	// junk after the end-of-list byte, checksum redone over it
	b[22], b[23] = 7, 7
	b[16], b[17] = 0, 0
	s := checksum.PseudoHeaderSum(srcIP[:], dstIP[:], ProtocolNumber, uint32(len(b)))
	checksum.Put(b[16:], checksum.Complete(checksum.Sum(s, b)))
	require.True(t, VerifyChecksumIPv4(b, srcIP, dstIP))

	got, err := ParsePacket(b)
	require.NoError(t, err)
	assert.Equal(t, Options{NoOperation}, got.Options)
	assert.True(t, got.VerifyIPv4(srcIP, dstIP))

	// re-encoding drops the junk and the new checksum covers what is written
	out, err := got.BytesIPv4(srcIP, dstIP)
	require.NoError(t, err)
	assert.True(t, VerifyChecksumIPv4(out, srcIP, dstIP))
	assert.True(t, got.VerifyIPv4(srcIP, dstIP))
}
