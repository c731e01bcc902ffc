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
)

var ipv4Cmd = &cobra.Command{
	Use:   "ipv4",
	Short: "Build an IPv4 packet",
	Long: `Build an IPv4 packet around an opaque payload and print it as hex.
IHL, total length and header checksum are computed.

Examples:
  pktbuilder ipv4 --src 10.0.0.1 --dst 10.0.0.2 --protocol 17 --payload Test
  pktbuilder ipv4 --df --id 4660 --ip-nop 3 --payload-hex deadbeef`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIPv4(globalCfg, &ipv4CmdFlags, cmd.OutOrStdout())
	},
}

type ipv4Options struct {
	ip       ipv4Flags
	payload  payloadFlags
	protocol uint8
	dump     bool
}

var ipv4CmdFlags ipv4Options

func init() {
	ipv4CmdFlags.register(ipv4Cmd.Flags())
}

func (o *ipv4Options) register(fs *pflag.FlagSet) {
	o.ip.register(fs)
	o.payload.register(fs)
	fs.Uint8Var(&o.protocol, "protocol", 6, "IP protocol number of the payload")
	fs.BoolVar(&o.dump, "dump", false, "print a hex dump instead of a hex string")
}

func runIPv4(cfg *config.GlobalConfig, o *ipv4Options, w io.Writer) error {
	payload, err := o.payload.bytes()
	if err != nil {
		return err
	}
	p, err := o.ip.packet(newBuilder(cfg.Defaults), cfg.Defaults, o.protocol, payload)
	if err != nil {
		return err
	}
	out, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("failed to build ipv4 packet: %w", err)
	}
	metrics.ObserveEncode(core.LayerIPv4)

	log.GetLogger().
		WithField("ihl", p.Header.IHL).
		WithField("total_length", p.Header.TotalLength).
		WithField("checksum", fmt.Sprintf("0x%04x", p.Header.Checksum)).
		Debug("ipv4 packet built")
	return writeHex(w, out, o.dump)
}
