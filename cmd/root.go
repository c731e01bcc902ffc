// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// globalCfg is loaded before any subcommand runs.
	globalCfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktbuilder",
	Short: "pktbuilder - Ethernet/IPv4/TCP packet builder and decoder",
	Long: `pktbuilder builds byte-exact Ethernet II, IPv4 and TCP packets and decodes
them back into header fields.

Features:
  - Header and option codecs with RFC 1071 checksums
  - Packet templates in YAML or JSON
  - Hex or pcap output, pcap input
  - Prometheus counters for codec operations and decode errors`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log.level (trace/debug/info/warn/error)")

	// Add subcommands
	rootCmd.AddCommand(tcpCmd)
	rootCmd.AddCommand(ipv4Cmd)
	rootCmd.AddCommand(frameCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and initializes logging.
func setup() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	globalCfg = cfg

	log.GetLogger().WithField("config", configFile).Debug("configuration loaded")
	return nil
}
