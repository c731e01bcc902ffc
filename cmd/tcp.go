package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/internal/log"
	"firestige.xyz/pktbuilder/internal/metrics"
	"firestige.xyz/pktbuilder/pkg/address"
)

var tcpCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Build a TCP segment",
	Long: `Build a TCP segment and print it as hex. The checksum is computed over the
IPv4 (or, with --ipv6, IPv6) pseudo-header of --src and --dst.

Examples:
  pktbuilder tcp --sport 1234 --dport 80 --seq 1000 --flags syn --mss 1460
  pktbuilder tcp --flags psh,ack --payload "GET / HTTP/1.0"
  pktbuilder tcp --ipv6 --src 2001:db8::1 --dst 2001:db8::2 --flags syn`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTCP(globalCfg, &tcpCmdFlags, cmd.OutOrStdout())
	},
}

type tcpOptions struct {
	tcp     tcpFlags
	payload payloadFlags

	src, dst string
	ipv6     bool
	dump     bool
}

var tcpCmdFlags tcpOptions

func init() {
	tcpCmdFlags.register(tcpCmd.Flags())
}

func (o *tcpOptions) register(fs *pflag.FlagSet) {
	o.tcp.register(fs)
	o.payload.register(fs)
	fs.StringVar(&o.src, "src", "", "pseudo-header source address (default defaults.src_ip)")
	fs.StringVar(&o.dst, "dst", "", "pseudo-header destination address (default defaults.dst_ip)")
	fs.BoolVar(&o.ipv6, "ipv6", false, "use an IPv6 pseudo-header; --src and --dst are required")
	fs.BoolVar(&o.dump, "dump", false, "print a hex dump instead of a hex string")
}

func runTCP(cfg *config.GlobalConfig, o *tcpOptions, w io.Writer) error {
	payload, err := o.payload.bytes()
	if err != nil {
		return err
	}
	seg, err := o.tcp.segment(newBuilder(cfg.Defaults), cfg.Defaults, payload)
	if err != nil {
		return err
	}

	var out []byte
	if o.ipv6 {
		if o.src == "" || o.dst == "" {
			return fmt.Errorf("--ipv6 requires --src and --dst")
		}
		src, err := address.ParseIPv6(o.src)
		if err != nil {
			return fmt.Errorf("--src: %w", err)
		}
		dst, err := address.ParseIPv6(o.dst)
		if err != nil {
			return fmt.Errorf("--dst: %w", err)
		}
		if out, err = seg.BytesIPv6(src, dst); err != nil {
			return fmt.Errorf("failed to build tcp segment: %w", err)
		}
	} else {
		src, err := address.ParseIPv4(orDefault(o.src, cfg.Defaults.SrcIP))
		if err != nil {
			return fmt.Errorf("--src: %w", err)
		}
		dst, err := address.ParseIPv4(orDefault(o.dst, cfg.Defaults.DstIP))
		if err != nil {
			return fmt.Errorf("--dst: %w", err)
		}
		if out, err = seg.BytesIPv4(src, dst); err != nil {
			return fmt.Errorf("failed to build tcp segment: %w", err)
		}
	}
	metrics.ObserveEncode(core.LayerTCP)

	log.GetLogger().
		WithField("flags", seg.Header.Flags.String()).
		WithField("data_offset", seg.Header.DataOffset).
		WithField("checksum", fmt.Sprintf("0x%04x", seg.Header.Checksum)).
		Debug("tcp segment built")
	return writeHex(w, out, o.dump)
}
