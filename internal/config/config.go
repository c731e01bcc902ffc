// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pktbuilder:` root key in YAML.
type GlobalConfig struct {
	Log      LogConfig      `mapstructure:"log"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Output   OutputConfig   `mapstructure:"output"`
	Decoder  DecoderConfig  `mapstructure:"decoder"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ─── Packet Defaults ───

// DefaultsConfig holds header values used when a command or template leaves
// them unset.
type DefaultsConfig struct {
	TTL    uint8  `mapstructure:"ttl"`
	Window uint16 `mapstructure:"window"`
	MSS    uint16 `mapstructure:"mss"` // 0 = no MSS option
	SrcMAC string `mapstructure:"src_mac"`
	DstMAC string `mapstructure:"dst_mac"`
	SrcIP  string `mapstructure:"src_ip"`
	DstIP  string `mapstructure:"dst_ip"`
}

// Endpoints are the parsed default addresses.
type Endpoints struct {
	SrcMAC address.MAC
	DstMAC address.MAC
	SrcIP  address.IPv4
	DstIP  address.IPv4
}

// Endpoints parses the configured default addresses.
func (d DefaultsConfig) Endpoints() (Endpoints, error) {
	var (
		ep  Endpoints
		err error
	)
	if ep.SrcMAC, err = address.ParseMAC(d.SrcMAC); err != nil {
		return ep, fmt.Errorf("defaults.src_mac: %w", err)
	}
	if ep.DstMAC, err = address.ParseMAC(d.DstMAC); err != nil {
		return ep, fmt.Errorf("defaults.dst_mac: %w", err)
	}
	if ep.SrcIP, err = address.ParseIPv4(d.SrcIP); err != nil {
		return ep, fmt.Errorf("defaults.src_ip: %w", err)
	}
	if ep.DstIP, err = address.ParseIPv4(d.DstIP); err != nil {
		return ep, fmt.Errorf("defaults.dst_ip: %w", err)
	}
	return ep, nil
}

// ─── Output ───

// OutputConfig selects how built packets are emitted.
type OutputConfig struct {
	Format  string `mapstructure:"format"` // hex | pcap
	SnapLen uint32 `mapstructure:"snaplen"`
}

// ─── Decoder ───

// DecoderConfig controls the offline frame decoder.
type DecoderConfig struct {
	VerifyChecksums bool `mapstructure:"verify_checksums"`
	MaxVLANDepth    int  `mapstructure:"max_vlan_depth"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Listen   string `mapstructure:"listen"` // empty = no HTTP exporter
	Path     string `mapstructure:"path"`
	Textfile string `mapstructure:"textfile"` // written after decode when set
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // trace / debug / info / warn / error
	Format  string           `mapstructure:"format"` // pattern / json / text
	Pattern string           `mapstructure:"pattern"`
	Time    string           `mapstructure:"time"`
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktbuilder: ...`.
type configRoot struct {
	PktBuilder GlobalConfig `mapstructure:"pktbuilder"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to env overrides.
// The YAML file uses `pktbuilder:` as root key; env vars map through the key
// replacer (e.g. key "pktbuilder.log.level" → env "PKTBUILDER_LOG_LEVEL").
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PktBuilder

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "pktbuilder." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktbuilder.log.level", "info")
	v.SetDefault("pktbuilder.log.format", "pattern")
	v.SetDefault("pktbuilder.log.pattern", DefaultLogPattern)
	v.SetDefault("pktbuilder.log.time", DefaultLogTime)
	v.SetDefault("pktbuilder.log.outputs.file.enabled", false)
	v.SetDefault("pktbuilder.log.outputs.file.path", "pktbuilder.log")
	v.SetDefault("pktbuilder.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktbuilder.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktbuilder.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktbuilder.log.outputs.file.rotation.compress", true)

	// Packet defaults
	v.SetDefault("pktbuilder.defaults.ttl", 64)
	v.SetDefault("pktbuilder.defaults.window", 65535)
	v.SetDefault("pktbuilder.defaults.mss", 1460)
	v.SetDefault("pktbuilder.defaults.src_mac", "02:00:00:00:00:01")
	v.SetDefault("pktbuilder.defaults.dst_mac", "02:00:00:00:00:02")
	v.SetDefault("pktbuilder.defaults.src_ip", "192.168.1.100")
	v.SetDefault("pktbuilder.defaults.dst_ip", "192.168.1.1")

	// Output defaults
	v.SetDefault("pktbuilder.output.format", OutputHex)
	v.SetDefault("pktbuilder.output.snaplen", 65535)

	// Decoder defaults
	v.SetDefault("pktbuilder.decoder.verify_checksums", true)
	v.SetDefault("pktbuilder.decoder.max_vlan_depth", 2)

	// Metrics defaults
	v.SetDefault("pktbuilder.metrics.listen", "")
	v.SetDefault("pktbuilder.metrics.path", "/metrics")
	v.SetDefault("pktbuilder.metrics.textfile", "")
}

const (
	DefaultLogPattern = "%time [%level] %msg %field%n"
	DefaultLogTime    = "2006-01-02 15:04:05.000"

	OutputHex  = "hex"
	OutputPcap = "pcap"
)

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "pattern", "json", "text":
	default:
		return fmt.Errorf("%w: invalid log format: %s (must be pattern/json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Pattern == "" {
		cfg.Log.Pattern = DefaultLogPattern
	}
	if cfg.Log.Time == "" {
		cfg.Log.Time = DefaultLogTime
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Packet defaults ──
	if cfg.Defaults.TTL == 0 {
		cfg.Defaults.TTL = 64
	}
	if _, err := cfg.Defaults.Endpoints(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}

	// ── Output ──
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Format != OutputHex && cfg.Output.Format != OutputPcap {
		return fmt.Errorf("%w: invalid output format: %s (must be hex/pcap)", core.ErrConfigInvalid, cfg.Output.Format)
	}
	if cfg.Output.SnapLen == 0 {
		cfg.Output.SnapLen = 65535
	}

	// ── Decoder ──
	if cfg.Decoder.MaxVLANDepth < 0 {
		return fmt.Errorf("%w: decoder.max_vlan_depth must not be negative", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with '/'", core.ErrConfigInvalid)
	}

	return nil
}
