package pcapio

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktbuilder/internal/core"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 0)
	require.NoError(t, err)

	ts := time.Unix(1700000000, 123000).UTC()
	frames := [][]byte{
		bytes.Repeat([]byte{0xaa}, 60),
		bytes.Repeat([]byte{0xbb}, 74),
	}
	for _, f := range frames {
		require.NoError(t, w.WriteFrame(ts, f))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	for _, want := range frames {
		pkt, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want, pkt.Data)
		assert.Equal(t, uint32(len(want)), pkt.CaptureLen)
		assert.Equal(t, uint32(len(want)), pkt.OrigLen)
		assert.True(t, ts.Equal(pkt.Timestamp))
	}
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSnapLenTruncates(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 32)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(time.Now(), make([]byte, 100)))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	pkt, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, pkt.Data, 32)
	assert.Equal(t, uint32(32), pkt.CaptureLen)
	assert.Equal(t, uint32(100), pkt.OrigLen)
}

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pcap")
	w, err := Create(path, 1500)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(time.Now(), []byte{1, 2, 3}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	pkt, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, pkt.Data)

	_, err = Open(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestRejectsNonEthernet(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(65535, layers.LinkTypeRaw))

	_, err := NewReader(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnsupportedProto))
}

func TestRejectsGarbage(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not a pcap file at all")))
	assert.Error(t, err)
}
