package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/core/decoder"
	"firestige.xyz/pktbuilder/internal/metrics"
)

// MockSource implements frameSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Next() (core.RawPacket, error) {
	args := m.Called()
	return args.Get(0).(core.RawPacket), args.Error(1)
}

func (m *MockSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDecoder implements decoder.Decoder
type MockDecoder struct {
	mock.Mock
}

func (m *MockDecoder) Decode(raw core.RawPacket) (*decoder.Packet, error) {
	args := m.Called(raw)
	if p := args.Get(0); p != nil {
		return p.(*decoder.Packet), args.Error(1)
	}
	return nil, args.Error(1)
}

// synFrameHex builds a default SYN frame through the frame command.
func synFrameHex(t *testing.T, args ...string) string {
	t.Helper()
	o := &frameOptions{}
	parseFlags(t, o, args...)
	var buf bytes.Buffer
	require.NoError(t, runFrame(testConfig(t), o, &buf))
	return strings.TrimSpace(buf.String())
}

func TestDecodeAllReportsEachFrame(t *testing.T) {
	good := core.RawPacket{Data: []byte{1}}
	bad := core.RawPacket{Data: []byte{2}}

	src := new(MockSource)
	src.On("Next").Return(good, nil).Once()
	src.On("Next").Return(bad, nil).Once()
	src.On("Next").Return(core.RawPacket{}, io.EOF).Once()

	dec := new(MockDecoder)
	dec.On("Decode", good).Return(&decoder.Packet{}, nil)
	dec.On("Decode", bad).Return(nil, core.NewDecodeError(core.LayerEthernet, core.KindTruncated, 1, "too short"))

	var buf bytes.Buffer
	total, failed, err := decodeAll(src, dec, false, &buf)

	assert.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "#1 ")
	assert.Contains(t, buf.String(), "#2 error: ethernet: truncated")
	src.AssertExpectations(t)
	dec.AssertExpectations(t)
}

func TestDecodeAllStopsOnReadError(t *testing.T) {
	src := new(MockSource)
	src.On("Next").Return(core.RawPacket{}, errors.New("disk gone")).Once()
	dec := new(MockDecoder)

	var buf bytes.Buffer
	total, _, err := decodeAll(src, dec, false, &buf)

	assert.EqualError(t, err, "disk gone")
	assert.Equal(t, 0, total)
	dec.AssertNotCalled(t, "Decode", mock.Anything)
}

func TestRunDecodeHex(t *testing.T) {
	frame := synFrameHex(t, "--sport", "1234", "--dport", "80", "--payload", "hi", "--ip-nop", "1")

	var buf bytes.Buffer
	err := runDecode(context.Background(), testConfig(t), &decodeOptions{hex: frame, xnet: true}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ethernet 02:00:00:00:00:01 -> 02:00:00:00:00:02 type=IPv4")
	assert.Contains(t, out, "ipv4 192.168.1.100 -> 192.168.1.1 ihl=6")
	assert.Contains(t, out, "options=[NOP EOL]")
	assert.Contains(t, out, "tcp 1234 -> 80 seq=0 ack=0 flags=SYN")
	assert.Contains(t, out, "options=[MSS(1460)]")
	assert.Equal(t, 2, strings.Count(out, "(valid)"))
	assert.Contains(t, out, "payload 2 bytes")
	assert.Contains(t, out, "x/net: ok")
}

func TestRunDecodeCorruptChecksum(t *testing.T) {
	frame := synFrameHex(t)
	// flip a bit in the TCP sequence number
	b := []byte(frame)
	i := 2 * (14 + 20 + 4)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}

	var buf bytes.Buffer
	require.NoError(t, runDecode(context.Background(), testConfig(t), &decodeOptions{hex: string(b)}, &buf))
	assert.Contains(t, buf.String(), "(invalid)")

	buf.Reset()
	require.NoError(t, runDecode(context.Background(), testConfig(t), &decodeOptions{hex: string(b), noVerify: true}, &buf))
	assert.Contains(t, buf.String(), "(unchecked)")
}

func TestRunDecodeFailedFrame(t *testing.T) {
	var buf bytes.Buffer
	err := runDecode(context.Background(), testConfig(t), &decodeOptions{hex: "0102"}, &buf)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 frames failed")
	assert.Contains(t, buf.String(), "#1 error:")
}

func TestRunDecodeInputFlags(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(t)

	assert.Error(t, runDecode(context.Background(), cfg, &decodeOptions{}, &buf))
	assert.Error(t, runDecode(context.Background(), cfg, &decodeOptions{hex: "00", pcap: "x.pcap"}, &buf))
	assert.Error(t, runDecode(context.Background(), cfg, &decodeOptions{pcap: filepath.Join(t.TempDir(), "none.pcap")}, &buf))
}

func TestRunDecodePcapWithMetricsFile(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "in.pcap")
	o := &frameOptions{}
	parseFlags(t, o, "--count", "2", "--out", capture)
	var discard bytes.Buffer
	require.NoError(t, runFrame(testConfig(t), o, &discard))

	textfile := filepath.Join(dir, "decode.prom")
	var buf bytes.Buffer
	err := runDecode(context.Background(), testConfig(t),
		&decodeOptions{pcap: capture, metricsFile: textfile, summary: true}, &buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "#2 ")
	assert.Contains(t, buf.String(), `pktbuilder_codec_ops_total{layer="tcp",op="decode"}`)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pktbuilder_codec_ops_total")
}

func TestRunDecodeServesMetricsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := runDecode(ctx, testConfig(t),
		&decodeOptions{hex: synFrameHex(t), metricsListen: "127.0.0.1:0"}, &buf)
	assert.NoError(t, err)
}

func TestWriteSummary(t *testing.T) {
	metrics.ObserveEncode(core.LayerIPv4)

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, prometheus.DefaultGatherer))
	assert.True(t, strings.HasPrefix(buf.String(), "metrics:\n"))
	assert.Contains(t, buf.String(), `pktbuilder_codec_ops_total{layer="ipv4",op="encode"}`)
}
