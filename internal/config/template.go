package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
	"firestige.xyz/pktbuilder/pkg/ethernet"
	"firestige.xyz/pktbuilder/pkg/ipv4"
	"firestige.xyz/pktbuilder/pkg/tcp"
)

// PacketTemplate describes one packet to build. Unset addresses and header
// values fall back to DefaultsConfig.
type PacketTemplate struct {
	Name       string            `yaml:"name" json:"name"`
	Ethernet   *EthernetTemplate `yaml:"ethernet" json:"ethernet"`
	IPv4       *IPv4Template     `yaml:"ipv4" json:"ipv4"`
	TCP        *TCPTemplate      `yaml:"tcp" json:"tcp"`
	Payload    string            `yaml:"payload" json:"payload"`         // literal text
	PayloadHex string            `yaml:"payload_hex" json:"payload_hex"` // hex, mutually exclusive with payload
}

// EthernetTemplate is the link layer of a template.
type EthernetTemplate struct {
	Src       string `yaml:"src" json:"src"`
	Dst       string `yaml:"dst" json:"dst"`
	EtherType uint16 `yaml:"ether_type" json:"ether_type"` // 0 = IPv4
}

// IPv4Template is the network layer of a template.
type IPv4Template struct {
	Src            string   `yaml:"src" json:"src"`
	Dst            string   `yaml:"dst" json:"dst"`
	Protocol       uint8    `yaml:"protocol" json:"protocol"` // 0 = TCP when a tcp section exists
	TOS            uint8    `yaml:"tos" json:"tos"`
	TTL            uint8    `yaml:"ttl" json:"ttl"`
	Identification uint16   `yaml:"id" json:"id"`
	DontFragment   bool     `yaml:"dont_fragment" json:"dont_fragment"`
	MoreFragments  bool     `yaml:"more_fragments" json:"more_fragments"`
	FragmentOffset uint16   `yaml:"fragment_offset" json:"fragment_offset"`
	Options        []string `yaml:"options" json:"options"` // eol | nop
}

// TCPTemplate is the transport layer of a template. Options stay generic
// until TCPOptions decodes them.
type TCPTemplate struct {
	SrcPort uint16           `yaml:"src_port" json:"src_port"`
	DstPort uint16           `yaml:"dst_port" json:"dst_port"`
	Seq     uint32           `yaml:"seq" json:"seq"`
	Ack     uint32           `yaml:"ack" json:"ack"`
	Flags   string           `yaml:"flags" json:"flags"` // e.g. "syn,ack"
	Window  uint16           `yaml:"window" json:"window"`
	Urgent  uint16           `yaml:"urgent" json:"urgent"`
	Options []map[string]any `yaml:"options" json:"options"`
}

// TCPOptionSpec is one entry of TCPTemplate.Options.
type TCPOptionSpec struct {
	Kind  string `mapstructure:"kind"` // eol | nop | mss
	Value uint16 `mapstructure:"value"`
}

// ParseTemplate parses a template from data. format is "yaml" or "json".
func ParseTemplate(data []byte, format string) (*PacketTemplate, error) {
	var t PacketTemplate
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse packet template: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse packet template: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported template format %q", core.ErrTemplateInvalid, format)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseTemplateAuto reads path and picks the format from its extension.
func ParseTemplateAuto(path string) (*PacketTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read packet template: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseTemplate(data, format)
}

func templateErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrTemplateInvalid, fmt.Sprintf(format, args...))
}

// Validate checks every field that can be checked without defaults.
func (t *PacketTemplate) Validate() error {
	if t.IPv4 == nil && t.TCP == nil {
		return templateErr("at least one of ipv4 or tcp is required")
	}
	if t.Payload != "" && t.PayloadHex != "" {
		return templateErr("payload and payload_hex are mutually exclusive")
	}
	if _, err := t.PayloadBytes(); err != nil {
		return err
	}

	if e := t.Ethernet; e != nil {
		if e.Src != "" {
			if _, err := address.ParseMAC(e.Src); err != nil {
				return templateErr("ethernet.src: %v", err)
			}
		}
		if e.Dst != "" {
			if _, err := address.ParseMAC(e.Dst); err != nil {
				return templateErr("ethernet.dst: %v", err)
			}
		}
		if e.EtherType != 0 && ethernet.EtherType(e.EtherType) != ethernet.EtherTypeIPv4 {
			return templateErr("ethernet.ether_type must be 0x0800, got 0x%04x", e.EtherType)
		}
	}

	if ip := t.IPv4; ip != nil {
		for name, s := range map[string]string{"ipv4.src": ip.Src, "ipv4.dst": ip.Dst} {
			if s == "" {
				continue
			}
			if _, err := address.ParseIPv4(s); err != nil {
				return templateErr("%s: %v", name, err)
			}
		}
		if t.TCP != nil && ip.Protocol != 0 && ip.Protocol != tcp.ProtocolNumber {
			return templateErr("ipv4.protocol %d conflicts with tcp section", ip.Protocol)
		}
		if ip.FragmentOffset > 0x1FFF {
			return templateErr("ipv4.fragment_offset %d exceeds 13 bits", ip.FragmentOffset)
		}
		if _, err := ip.IPv4Options(); err != nil {
			return err
		}
	}

	if tc := t.TCP; tc != nil {
		if _, ok := tcp.ParseFlags(tc.Flags); !ok {
			return templateErr("tcp.flags: unknown flag in %q", tc.Flags)
		}
		if _, err := tc.TCPOptions(); err != nil {
			return err
		}
	}
	return nil
}

// PayloadBytes returns the decoded payload.
func (t *PacketTemplate) PayloadBytes() ([]byte, error) {
	if t.PayloadHex != "" {
		b, err := DecodeHex(t.PayloadHex)
		if err != nil {
			return nil, templateErr("payload_hex: %v", err)
		}
		return b, nil
	}
	return []byte(t.Payload), nil
}

// IPv4Options converts the option names to ipv4.Options.
func (t *IPv4Template) IPv4Options() (ipv4.Options, error) {
	var opts ipv4.Options
	for i, name := range t.Options {
		switch strings.ToLower(name) {
		case "eol":
			opts.Add(ipv4.EndOfOptionsList)
		case "nop":
			opts.Add(ipv4.NoOperation)
		default:
			return nil, templateErr("ipv4.options[%d]: unknown option %q", i, name)
		}
	}
	return opts, nil
}

// TCPOptions decodes the generic option maps into tcp.Options.
func (t *TCPTemplate) TCPOptions() (tcp.Options, error) {
	var specs []TCPOptionSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &specs,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(t.Options); err != nil {
		return nil, templateErr("tcp.options: %v", err)
	}

	var opts tcp.Options
	for i, s := range specs {
		switch strings.ToLower(s.Kind) {
		case "eol":
			opts.Add(tcp.EndOfOptionList)
		case "nop":
			opts.Add(tcp.NoOperation)
		case "mss":
			if s.Value == 0 {
				return nil, templateErr("tcp.options[%d]: mss needs a non-zero value", i)
			}
			opts.Add(tcp.MaximumSegmentSize(s.Value))
		default:
			return nil, templateErr("tcp.options[%d]: unknown kind %q", i, s.Kind)
		}
	}
	return opts, nil
}
