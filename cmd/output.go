package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/pcapio"
)

// frameSink receives finished frames. *pcapio.Writer satisfies it.
type frameSink interface {
	WriteFrame(ts time.Time, frame []byte) error
	Close() error
}

// hexSink prints one frame per line, or a hex dump per frame.
type hexSink struct {
	w    io.Writer
	dump bool
}

func (s *hexSink) WriteFrame(_ time.Time, frame []byte) error {
	return writeHex(s.w, frame, s.dump)
}

func (s *hexSink) Close() error { return nil }

func writeHex(w io.Writer, b []byte, dump bool) error {
	var err error
	if dump {
		_, err = io.WriteString(w, hex.Dump(b))
	} else {
		_, err = fmt.Fprintln(w, hex.EncodeToString(b))
	}
	return err
}

// openSink picks the frame output. An explicit path always means a pcap
// file; otherwise output.format decides between hex and pcap on w.
func openSink(out config.OutputConfig, path string, dump bool, w io.Writer) (frameSink, error) {
	var (
		pw  *pcapio.Writer
		err error
	)
	switch {
	case path != "":
		pw, err = pcapio.Create(path, out.SnapLen)
	case out.Format == config.OutputPcap:
		pw, err = pcapio.NewWriter(w, out.SnapLen)
	default:
		return &hexSink{w: w, dump: dump}, nil
	}
	if err != nil {
		return nil, err
	}
	return pw, nil
}
