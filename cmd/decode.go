package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	xipv4 "golang.org/x/net/ipv4"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/core/decoder"
	"firestige.xyz/pktbuilder/internal/log"
	"firestige.xyz/pktbuilder/internal/metrics"
	"firestige.xyz/pktbuilder/internal/pcapio"
	"firestige.xyz/pktbuilder/pkg/ethernet"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a hex frame or a pcap file",
	Long: `Decode Ethernet frames into header fields and report checksum validity.
Input is either one frame as hex (--hex) or every record of a pcap file (--pcap).

Examples:
  pktbuilder decode --hex "$(pktbuilder frame)"
  pktbuilder decode --pcap capture.pcap --xnet
  pktbuilder decode --pcap capture.pcap --metrics-file decode.prom
  pktbuilder decode --pcap capture.pcap --metrics-listen :9091`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDecode(ctx, globalCfg, &decodeCmdFlags, cmd.OutOrStdout())
	},
}

type decodeOptions struct {
	hex           string
	pcap          string
	xnet          bool
	noVerify      bool
	summary       bool
	metricsListen string
	metricsFile   string
}

var decodeCmdFlags decodeOptions

func init() {
	decodeCmdFlags.register(decodeCmd.Flags())
}

func (o *decodeOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.hex, "hex", "", "one frame as hex")
	fs.StringVar(&o.pcap, "pcap", "", "pcap file to decode")
	fs.BoolVar(&o.xnet, "xnet", false, "cross-check IPv4 headers with golang.org/x/net/ipv4")
	fs.BoolVar(&o.noVerify, "no-verify", false, "skip checksum verification")
	fs.BoolVar(&o.summary, "summary", false, "print codec counters after decoding")
	fs.StringVar(&o.metricsListen, "metrics-listen", "",
		"serve metrics on this address after decoding until interrupted (default metrics.listen)")
	fs.StringVar(&o.metricsFile, "metrics-file", "",
		"write metrics in text format to this file (default metrics.textfile)")
}

// frameSource yields raw frames. *pcapio.Reader satisfies it.
type frameSource interface {
	Next() (core.RawPacket, error)
	Close() error
}

// hexSource yields a single frame.
type hexSource struct {
	data []byte
	done bool
}

func (s *hexSource) Next() (core.RawPacket, error) {
	if s.done {
		return core.RawPacket{}, io.EOF
	}
	s.done = true
	return core.RawPacket{
		Data:       s.data,
		Timestamp:  time.Now(),
		CaptureLen: uint32(len(s.data)),
		OrigLen:    uint32(len(s.data)),
	}, nil
}

func (s *hexSource) Close() error { return nil }

func openSource(o *decodeOptions) (frameSource, error) {
	switch {
	case o.hex != "" && o.pcap != "":
		return nil, fmt.Errorf("--hex and --pcap are mutually exclusive")
	case o.hex != "":
		data, err := config.DecodeHex(o.hex)
		if err != nil {
			return nil, err
		}
		return &hexSource{data: data}, nil
	case o.pcap != "":
		r, err := pcapio.Open(o.pcap)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("one of --hex or --pcap is required")
	}
}

func runDecode(ctx context.Context, cfg *config.GlobalConfig, o *decodeOptions, w io.Writer) error {
	src, err := openSource(o)
	if err != nil {
		return err
	}
	defer src.Close()

	dec := decoder.NewStandardDecoder(decoder.Config{
		VerifyChecksums: cfg.Decoder.VerifyChecksums && !o.noVerify,
		MaxVLANDepth:    cfg.Decoder.MaxVLANDepth,
	})
	total, failed, err := decodeAll(src, dec, o.xnet, w)
	if err != nil {
		return err
	}
	log.GetLogger().WithField("frames", total).WithField("failed", failed).Info("decode finished")

	if o.summary {
		if err := writeSummary(w, prometheus.DefaultGatherer); err != nil {
			return err
		}
	}
	if path := orDefault(o.metricsFile, cfg.Metrics.Textfile); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if addr := orDefault(o.metricsListen, cfg.Metrics.Listen); addr != "" {
		if err := serveMetrics(ctx, addr, cfg.Metrics.Path); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed to decode", failed, total)
	}
	return nil
}

// decodeAll prints every frame of src. Decode errors are reported per frame
// and counted; read errors abort.
func decodeAll(src frameSource, dec decoder.Decoder, xnet bool, w io.Writer) (total, failed int, err error) {
	for {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return total, failed, nil
		}
		if err != nil {
			return total, failed, err
		}
		total++

		pkt, err := dec.Decode(raw)
		if err != nil {
			failed++
			fmt.Fprintf(w, "#%d error: %v\n", total, err)
			continue
		}
		writePacket(w, total, pkt)

		if xnet && pkt.IPv4 != nil {
			if msg := crossCheckIPv4(raw.Data[ipv4Offset(pkt):], pkt.IPv4); msg != "" {
				fmt.Fprintf(w, "  x/net: %s\n", msg)
			} else {
				fmt.Fprintln(w, "  x/net: ok")
			}
		}
	}
}

func ipv4Offset(pkt *decoder.Packet) int {
	return ethernet.HeaderLen + 4*len(pkt.VLANs)
}

func writePacket(w io.Writer, n int, pkt *decoder.Packet) {
	fmt.Fprintf(w, "#%d %s caplen=%d len=%d\n", n,
		pkt.Timestamp.Format(time.RFC3339Nano), pkt.CaptureLen, pkt.OrigLen)

	eth := pkt.Ethernet
	fmt.Fprintf(w, "  ethernet %s -> %s type=%s", eth.Source, eth.Destination, eth.EtherType)
	if len(pkt.VLANs) > 0 {
		fmt.Fprintf(w, " vlans=%v", pkt.VLANs)
	}
	fmt.Fprintln(w)

	if ip := pkt.IPv4; ip != nil {
		h := ip.Header
		fmt.Fprintf(w, "  ipv4 %s -> %s ihl=%d tos=%d len=%d id=%d flags=%s frag=%d ttl=%d proto=%d checksum=0x%04x (%s)",
			h.Source, h.Destination, h.IHL, h.TOS, h.TotalLength, h.Identification,
			h.Flags, h.FragmentOffset, h.TTL, h.Protocol, h.Checksum, pkt.IPv4Checksum)
		if len(ip.Options) > 0 {
			fmt.Fprintf(w, " options=%s", joinIPv4Options(ip.Options))
		}
		fmt.Fprintln(w)
	}
	if ip := pkt.IPv6; ip != nil {
		fmt.Fprintf(w, "  ipv6 %s -> %s next=%d hop=%d len=%d\n",
			ip.Source, ip.Destination, ip.NextHeader, ip.HopLimit, ip.PayloadLength)
	}
	if seg := pkt.TCP; seg != nil {
		h := seg.Header
		fmt.Fprintf(w, "  tcp %d -> %d seq=%d ack=%d flags=%s window=%d offset=%d urg=%d checksum=0x%04x (%s)",
			h.SourcePort, h.DestinationPort, h.SequenceNumber, h.AcknowledgmentNumber,
			h.Flags, h.Window, h.DataOffset, h.UrgentPointer, h.Checksum, pkt.TCPChecksum)
		if len(seg.Options) > 0 {
			fmt.Fprintf(w, " options=%s", joinTCPOptions(seg.Options))
		}
		fmt.Fprintln(w)
	}
	if len(pkt.Payload) > 0 {
		fmt.Fprintf(w, "  payload %d bytes\n", len(pkt.Payload))
	}
}

func joinIPv4Options(opts ipv4.Options) string {
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

func joinTCPOptions(opts tcp.Options) string {
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// crossCheckIPv4 parses b with x/net and lists the fields that disagree with
// p. Length and fragment fields are skipped since x/net reads them in host
// byte order on some platforms.
func crossCheckIPv4(b []byte, p *ipv4.Packet) string {
	h, err := xipv4.ParseHeader(b)
	if err != nil {
		return err.Error()
	}

	var diffs []string
	check := func(name string, got, want any) {
		if got != want {
			diffs = append(diffs, fmt.Sprintf("%s %v != %v", name, got, want))
		}
	}
	check("version", h.Version, int(p.Header.Version))
	check("header length", h.Len, int(p.Header.IHL)*4)
	check("tos", h.TOS, int(p.Header.TOS))
	check("id", h.ID, int(p.Header.Identification))
	check("ttl", h.TTL, int(p.Header.TTL))
	check("protocol", h.Protocol, int(p.Header.Protocol))
	check("checksum", h.Checksum, int(p.Header.Checksum))
	check("src", h.Src.String(), p.Header.Source.String())
	check("dst", h.Dst.String(), p.Header.Destination.String())
	return strings.Join(diffs, ", ")
}

func writeSummary(w io.Writer, g prometheus.Gatherer) error {
	samples, err := metrics.Snapshot(g)
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w, "metrics:")
	for _, s := range samples {
		keys := make([]string, 0, len(s.Labels))
		for k := range s.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%q", k, s.Labels[k])
		}
		fmt.Fprintf(w, "  %s{%s} %g\n", s.Name, strings.Join(pairs, ","), s.Value)
	}
	return nil
}

// serveMetrics exposes the registry until ctx is done.
func serveMetrics(ctx context.Context, addr, path string) error {
	srv := metrics.NewServer(addr, path)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.GetLogger().WithField("addr", addr).Info("serving metrics until interrupted")
	<-ctx.Done()
	return srv.Stop(context.Background())
}
