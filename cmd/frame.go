package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/log"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Build an Ethernet/IPv4/TCP frame",
	Long: `Build the whole stack: a TCP segment inside an IPv4 packet inside an
Ethernet II frame. With --out the frame is written to a pcap file, otherwise
output.format decides between hex and pcap on stdout.

Examples:
  pktbuilder frame --dport 443 --flags syn
  pktbuilder frame --src 10.0.0.1 --dst 10.0.0.2 --flags psh,ack --payload hi --out hi.pcap
  pktbuilder frame --count 3 --out syn.pcap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFrame(globalCfg, &frameCmdFlags, cmd.OutOrStdout())
	},
}

type frameOptions struct {
	eth     ethernetFlags
	ip      ipv4Flags
	tcp     tcpFlags
	payload payloadFlags

	out   string
	count int
	dump  bool
}

var frameCmdFlags frameOptions

func init() {
	frameCmdFlags.register(frameCmd.Flags())
}

func (o *frameOptions) register(fs *pflag.FlagSet) {
	o.eth.register(fs)
	o.ip.register(fs)
	o.tcp.register(fs)
	o.payload.register(fs)
	fs.StringVarP(&o.out, "out", "o", "", "write a pcap file instead of stdout")
	fs.IntVar(&o.count, "count", 1, "number of frames; seq and id advance per frame")
	fs.BoolVar(&o.dump, "dump", false, "print a hex dump instead of a hex string")
}

func runFrame(cfg *config.GlobalConfig, o *frameOptions, w io.Writer) error {
	if o.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}
	payload, err := o.payload.bytes()
	if err != nil {
		return err
	}
	dstMAC, srcMAC, err := o.eth.macs(cfg.Defaults)
	if err != nil {
		return err
	}

	sink, err := openSink(cfg.Output, o.out, o.dump, w)
	if err != nil {
		return err
	}
	defer sink.Close()

	b := newBuilder(cfg.Defaults)
	now := time.Now()
	for i := 0; i < o.count; i++ {
		ip, err := o.ip.packet(b, cfg.Defaults, tcp.ProtocolNumber, nil)
		if err != nil {
			return err
		}
		seg, err := o.tcp.segment(b, cfg.Defaults, payload)
		if err != nil {
			return err
		}
		ip.Header.Identification += uint16(i)
		seg.Header.SequenceNumber += uint32(i * len(payload))

		frame, err := b.TCPFrame(dstMAC, srcMAC, ip, seg)
		if err != nil {
			return fmt.Errorf("failed to build frame %d: %w", i, err)
		}
		if err := sink.WriteFrame(now.Add(time.Duration(i)*time.Millisecond), frame); err != nil {
			return err
		}
	}

	log.GetLogger().WithField("count", o.count).WithField("out", o.out).Debug("frames written")
	return sink.Close()
}
