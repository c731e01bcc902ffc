package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"firestige.xyz/pktbuilder/internal/core"
	"firestige.xyz/pktbuilder/pkg/address"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  log:
    level: "debug"
    format: "json"
  defaults:
    ttl: 128
    window: 1024
    mss: 536
    src_mac: "aa:bb:cc:dd:ee:01"
    dst_mac: "aa:bb:cc:dd:ee:02"
    src_ip: "10.0.0.1"
    dst_ip: "10.0.0.2"
  output:
    format: "pcap"
    snaplen: 1500
  decoder:
    verify_checksums: false
  metrics:
    listen: "127.0.0.1:9100"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected log format json, got %s", cfg.Log.Format)
	}
	if cfg.Defaults.TTL != 128 {
		t.Errorf("Expected TTL 128, got %d", cfg.Defaults.TTL)
	}
	if cfg.Defaults.Window != 1024 || cfg.Defaults.MSS != 536 {
		t.Errorf("Expected window 1024 / mss 536, got %d / %d", cfg.Defaults.Window, cfg.Defaults.MSS)
	}
	if cfg.Output.Format != OutputPcap || cfg.Output.SnapLen != 1500 {
		t.Errorf("Expected pcap/1500, got %s/%d", cfg.Output.Format, cfg.Output.SnapLen)
	}
	if cfg.Decoder.VerifyChecksums {
		t.Error("Expected verify_checksums false")
	}
	if cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Errorf("Expected metrics listen 127.0.0.1:9100, got %s", cfg.Metrics.Listen)
	}

	ep, err := cfg.Defaults.Endpoints()
	if err != nil {
		t.Fatalf("Endpoints failed: %v", err)
	}
	if ep.SrcIP != (address.IPv4{10, 0, 0, 1}) {
		t.Errorf("Expected src ip 10.0.0.1, got %s", ep.SrcIP)
	}
	if ep.DstMAC != (address.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x02}) {
		t.Errorf("Expected dst mac aa:bb:cc:dd:ee:02, got %s", ep.DstMAC)
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  log:
    level: "verbose"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid log level, got nil")
	}
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadInvalidLogFormat(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  log:
    format: "xml"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid log format, got nil")
	}
}

func TestLoadInvalidDefaultAddress(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  defaults:
    src_ip: "300.1.1.1"
`)

	_, err := Load(configPath)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Fatalf("Expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadInvalidOutputFormat(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  output:
    format: "raw"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid output format, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
pktbuilder:
  log:
    level: "info"
`)

	t.Setenv("PKTBUILDER_LOG_LEVEL", "debug")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug from env var, got %s", cfg.Log.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "pattern" {
		t.Errorf("Expected default log format pattern, got %s", cfg.Log.Format)
	}
	if cfg.Log.Pattern != DefaultLogPattern {
		t.Errorf("Expected default pattern, got %q", cfg.Log.Pattern)
	}
	if cfg.Defaults.TTL != 64 {
		t.Errorf("Expected default TTL 64, got %d", cfg.Defaults.TTL)
	}
	if cfg.Defaults.Window != 65535 {
		t.Errorf("Expected default window 65535, got %d", cfg.Defaults.Window)
	}
	if cfg.Output.Format != OutputHex {
		t.Errorf("Expected default output hex, got %s", cfg.Output.Format)
	}
	if !cfg.Decoder.VerifyChecksums {
		t.Error("Expected checksum verification on by default")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Expected default metrics path /metrics, got %s", cfg.Metrics.Path)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yml"))
	if err != nil {
		t.Fatalf("Failed to load shipped config: %v", err)
	}
	if cfg.Defaults.MSS != 1460 {
		t.Errorf("Expected MSS 1460, got %d", cfg.Defaults.MSS)
	}
	if cfg.Decoder.MaxVLANDepth != 2 {
		t.Errorf("Expected max VLAN depth 2, got %d", cfg.Decoder.MaxVLANDepth)
	}
}
