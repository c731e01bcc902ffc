package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/log"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/builder"
	"firestige.xyz/pktbuilder/pkg/ethernet"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a packet from a template file",
	Long: `Build a packet from a YAML or JSON template. Values the template leaves
unset come from the defaults section of the configuration.

A template with an ethernet section yields a frame; without one it yields the
IPv4 packet, or the bare TCP segment when there is no ipv4 section either.

Examples:
  pktbuilder build -f syn.yaml
  pktbuilder build -f syn.json --out syn.pcap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(globalCfg, buildFile, buildOut, cmd.OutOrStdout())
	},
}

var (
	buildFile string
	buildOut  string
)

func init() {
	buildCmd.Flags().StringVarP(&buildFile, "file", "f", "",
		"packet template file (required)")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "",
		"write a pcap file instead of stdout (needs an ethernet section)")
	buildCmd.MarkFlagRequired("file")
}

func runBuild(cfg *config.GlobalConfig, path, out string, w io.Writer) error {
	t, err := config.ParseTemplateAuto(path)
	if err != nil {
		return err
	}
	data, err := buildTemplate(cfg.Defaults, t)
	if err != nil {
		return fmt.Errorf("template %q: %w", t.Name, err)
	}

	if t.Ethernet == nil {
		if out != "" {
			return fmt.Errorf("--out needs a template with an ethernet section")
		}
		return writeHex(w, data, false)
	}

	sink, err := openSink(cfg.Output, out, false, w)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.WriteFrame(time.Now(), data); err != nil {
		return err
	}

	log.GetLogger().WithField("template", t.Name).WithField("bytes", len(data)).Debug("template built")
	return sink.Close()
}

// buildTemplate stacks the layers the template names, innermost first.
func buildTemplate(d config.DefaultsConfig, t *config.PacketTemplate) ([]byte, error) {
	b := newBuilder(d)
	payload, err := t.PayloadBytes()
	if err != nil {
		return nil, err
	}

	var seg *tcp.Packet
	if tt := t.TCP; tt != nil {
		if seg, err = tcpFromTemplate(b, d, tt, payload); err != nil {
			return nil, err
		}
	}

	ipt := t.IPv4
	if ipt == nil && t.Ethernet != nil {
		ipt = &config.IPv4Template{}
	}
	if ipt == nil {
		// validated: a template without ipv4 has tcp
		src, err := address.ParseIPv4(d.SrcIP)
		if err != nil {
			return nil, err
		}
		dst, err := address.ParseIPv4(d.DstIP)
		if err != nil {
			return nil, err
		}
		return seg.BytesIPv4(src, dst)
	}

	ipPayload := payload
	if seg != nil {
		ipPayload = nil
	}
	ip, err := ipv4FromTemplate(b, d, ipt, ipPayload)
	if err != nil {
		return nil, err
	}
	var packet []byte
	if seg != nil {
		packet, err = b.TCPOverIPv4(ip, seg)
	} else {
		packet, err = ip.Bytes()
	}
	if err != nil {
		return nil, err
	}
	if t.Ethernet == nil {
		return packet, nil
	}

	src, err := address.ParseMAC(orDefault(t.Ethernet.Src, d.SrcMAC))
	if err != nil {
		return nil, err
	}
	dst, err := address.ParseMAC(orDefault(t.Ethernet.Dst, d.DstMAC))
	if err != nil {
		return nil, err
	}
	return b.Ethernet(dst, src, ethernet.EtherTypeIPv4, packet).Bytes(), nil
}

func ipv4FromTemplate(b *builder.Builder, d config.DefaultsConfig, t *config.IPv4Template, payload []byte) (*ipv4.Packet, error) {
	src, err := address.ParseIPv4(orDefault(t.Src, d.SrcIP))
	if err != nil {
		return nil, err
	}
	dst, err := address.ParseIPv4(orDefault(t.Dst, d.DstIP))
	if err != nil {
		return nil, err
	}
	opts, err := t.IPv4Options()
	if err != nil {
		return nil, err
	}

	p := b.IPv4(src, dst, t.Protocol, payload)
	p.Header.TOS = t.TOS
	if t.TTL != 0 {
		p.Header.TTL = t.TTL
	}
	p.Header.Identification = t.Identification
	p.Header.Flags = ipv4.Flags{DontFragment: t.DontFragment, MoreFragments: t.MoreFragments}
	p.Header.FragmentOffset = t.FragmentOffset
	p.Options = opts
	return p, nil
}

func tcpFromTemplate(b *builder.Builder, d config.DefaultsConfig, t *config.TCPTemplate, payload []byte) (*tcp.Packet, error) {
	flags, ok := tcp.ParseFlags(t.Flags)
	if !ok {
		return nil, fmt.Errorf("tcp.flags: unknown flag in %q", t.Flags)
	}
	opts, err := t.TCPOptions()
	if err != nil {
		return nil, err
	}

	p := b.TCP(t.SrcPort, t.DstPort, payload)
	p.Header.SequenceNumber = t.Seq
	p.Header.AcknowledgmentNumber = t.Ack
	p.Header.Flags = flags
	p.Header.UrgentPointer = t.Urgent
	if t.Window != 0 {
		p.Header.Window = t.Window
	}
	p.Options = opts
	// SYNs without explicit options get the default MSS.
	if flags.SYN && len(opts) == 0 && d.MSS != 0 {
		p.Options.Add(tcp.MaximumSegmentSize(d.MSS))
	}
	return p, nil
}
