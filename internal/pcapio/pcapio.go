// Package pcapio reads and writes classic pcap files of Ethernet frames.
package pcapio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktbuilder/internal/core"
)

// DefaultSnapLen is used when a zero snaplen is requested.
const DefaultSnapLen = 65535

// Writer appends Ethernet frames to a pcap stream.
type Writer struct {
	w       *pcapgo.Writer
	closer  io.Closer
	snaplen uint32
}

// NewWriter writes the pcap file header to w and returns a frame writer.
func NewWriter(w io.Writer, snaplen uint32) (*Writer, error) {
	if snaplen == 0 {
		snaplen = DefaultSnapLen
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{w: pw, snaplen: snaplen}, nil
}

// Create truncates path and returns a Writer on it. Close releases the file.
func Create(path string, snaplen uint32) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file %s: %w", path, err)
	}
	w, err := NewWriter(f, snaplen)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// WriteFrame records one frame captured at ts. Frames longer than the
// snaplen are truncated; the original length is kept in the record header.
func (w *Writer) WriteFrame(ts time.Time, frame []byte) error {
	data := frame
	if uint32(len(data)) > w.snaplen {
		data = data[:w.snaplen]
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(frame),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// Close closes the underlying file when the Writer came from Create.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Reader yields the records of a pcap stream.
type Reader struct {
	r      *pcapgo.Reader
	closer io.Closer
}

// NewReader parses the pcap file header. Only Ethernet link type is
// accepted.
func NewReader(r io.Reader) (*Reader, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	if lt := pr.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("%w: link type %s, want Ethernet", core.ErrUnsupportedProto, lt)
	}
	return &Reader{r: pr}, nil
}

// Open opens a pcap file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (core.RawPacket, error) {
	data, ci, err := r.r.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawPacket{}, io.EOF
		}
		return core.RawPacket{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return core.RawPacket{
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}, nil
}

// Close closes the underlying file when the Reader came from Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
