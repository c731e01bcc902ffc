package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/builder"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// newBuilder returns a builder carrying the configured header defaults.
func newBuilder(d config.DefaultsConfig) *builder.Builder {
	return builder.New(
		builder.WithTTL(d.TTL),
		builder.WithWindow(d.Window),
		builder.WithMSS(d.MSS),
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ─── Payload ───

type payloadFlags struct {
	text string
	hex  string
}

func (f *payloadFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.text, "payload", "p", "", "payload as literal text")
	fs.StringVar(&f.hex, "payload-hex", "", "payload as hex, e.g. 48656c6c6f")
}

func (f *payloadFlags) bytes() ([]byte, error) {
	if f.text != "" && f.hex != "" {
		return nil, fmt.Errorf("--payload and --payload-hex are mutually exclusive")
	}
	if f.hex != "" {
		return config.DecodeHex(f.hex)
	}
	return []byte(f.text), nil
}

// ─── IPv4 ───

type ipv4Flags struct {
	fs *pflag.FlagSet

	src, dst   string
	tos        uint8
	ttl        uint8
	id         uint16
	df, mf     bool
	fragOffset uint16
	nops       int
	eol        bool
}

func (f *ipv4Flags) register(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVar(&f.src, "src", "", "source IPv4 address (default defaults.src_ip)")
	fs.StringVar(&f.dst, "dst", "", "destination IPv4 address (default defaults.dst_ip)")
	fs.Uint8Var(&f.tos, "tos", 0, "type of service")
	fs.Uint8Var(&f.ttl, "ttl", 0, "time to live (default defaults.ttl)")
	fs.Uint16Var(&f.id, "id", 0, "identification")
	fs.BoolVar(&f.df, "df", false, "set the don't fragment flag")
	fs.BoolVar(&f.mf, "mf", false, "set the more fragments flag")
	fs.Uint16Var(&f.fragOffset, "frag-offset", 0, "fragment offset in 8-byte units")
	fs.IntVar(&f.nops, "ip-nop", 0, "number of IPv4 NOP options to add")
	fs.BoolVar(&f.eol, "ip-eol", false, "terminate the option list with EOL")
}

func (f *ipv4Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// packet applies the flags over the defaults. The protocol is left to the
// caller.
func (f *ipv4Flags) packet(b *builder.Builder, d config.DefaultsConfig, protocol uint8, payload []byte) (*ipv4.Packet, error) {
	src, err := address.ParseIPv4(orDefault(f.src, d.SrcIP))
	if err != nil {
		return nil, fmt.Errorf("--src: %w", err)
	}
	dst, err := address.ParseIPv4(orDefault(f.dst, d.DstIP))
	if err != nil {
		return nil, fmt.Errorf("--dst: %w", err)
	}
	if f.nops < 0 {
		return nil, fmt.Errorf("--ip-nop must not be negative")
	}

	p := b.IPv4(src, dst, protocol, payload)
	p.Header.TOS = f.tos
	if f.changed("ttl") {
		p.Header.TTL = f.ttl
	}
	p.Header.Identification = f.id
	p.Header.Flags = ipv4.Flags{DontFragment: f.df, MoreFragments: f.mf}
	p.Header.FragmentOffset = f.fragOffset
	for i := 0; i < f.nops; i++ {
		p.Options.Add(ipv4.NoOperation)
	}
	if f.eol {
		p.Options.Add(ipv4.EndOfOptionsList)
	}
	return p, nil
}

// ─── TCP ───

type tcpFlags struct {
	fs *pflag.FlagSet

	srcPort, dstPort uint16
	seq, ack         uint32
	flags            string
	window           uint16
	urgent           uint16
	mss              uint16
	nops             int
	reserved         uint8
}

func (f *tcpFlags) register(fs *pflag.FlagSet) {
	f.fs = fs
	fs.Uint16Var(&f.srcPort, "sport", 49152, "source port")
	fs.Uint16Var(&f.dstPort, "dport", 80, "destination port")
	fs.Uint32Var(&f.seq, "seq", 0, "sequence number")
	fs.Uint32Var(&f.ack, "ack", 0, "acknowledgment number")
	fs.StringVar(&f.flags, "flags", "syn", "comma separated control flags, e.g. syn,ack")
	fs.Uint16Var(&f.window, "window", 0, "receive window (default defaults.window)")
	fs.Uint16Var(&f.urgent, "urgent", 0, "urgent pointer")
	fs.Uint16Var(&f.mss, "mss", 0, "MSS option value; SYN segments get defaults.mss unless set, 0 disables")
	fs.IntVar(&f.nops, "tcp-nop", 0, "number of TCP NOP options to add")
	fs.Uint8Var(&f.reserved, "reserved", 0, "reserved bits (0-7)")
}

func (f *tcpFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// segment applies the flags over the defaults.
func (f *tcpFlags) segment(b *builder.Builder, d config.DefaultsConfig, payload []byte) (*tcp.Packet, error) {
	flags, ok := tcp.ParseFlags(f.flags)
	if !ok {
		return nil, fmt.Errorf("--flags: unknown flag in %q", f.flags)
	}
	if f.nops < 0 {
		return nil, fmt.Errorf("--tcp-nop must not be negative")
	}

	p := b.TCP(f.srcPort, f.dstPort, payload)
	p.Header.SequenceNumber = f.seq
	p.Header.AcknowledgmentNumber = f.ack
	p.Header.Flags = flags
	p.Header.UrgentPointer = f.urgent
	p.Header.Reserved = f.reserved
	if f.changed("window") {
		p.Header.Window = f.window
	}

	for i := 0; i < f.nops; i++ {
		p.Options.Add(tcp.NoOperation)
	}
	mss := d.MSS
	if f.changed("mss") {
		mss = f.mss
	}
	if mss != 0 && (flags.SYN || f.changed("mss")) {
		p.Options.Add(tcp.MaximumSegmentSize(mss))
	}
	return p, nil
}

// ─── Ethernet ───

type ethernetFlags struct {
	src, dst string
}

func (f *ethernetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.src, "src-mac", "", "source MAC (default defaults.src_mac)")
	fs.StringVar(&f.dst, "dst-mac", "", "destination MAC (default defaults.dst_mac)")
}

func (f *ethernetFlags) macs(d config.DefaultsConfig) (dst, src address.MAC, err error) {
	if src, err = address.ParseMAC(orDefault(f.src, d.SrcMAC)); err != nil {
		return dst, src, fmt.Errorf("--src-mac: %w", err)
	}
	if dst, err = address.ParseMAC(orDefault(f.dst, d.DstMAC)); err != nil {
		return dst, src, fmt.Errorf("--dst-mac: %w", err)
	}
	return dst, src, nil
}
