package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktbuilder/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a packet template file",
	Long: `Validate a packet template (JSON or YAML) without building it.

File format is auto-detected from extension (.json, .yaml, .yml).

Examples:
  pktbuilder validate -f syn.json
  pktbuilder validate -f syn.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(validateFile, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

var validateFile string

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "",
		"packet template file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, w io.Writer) error {
	t, err := config.ParseTemplateAuto(path)
	if err != nil {
		return err
	}

	var layers []string
	if t.Ethernet != nil {
		layers = append(layers, "ethernet")
	}
	if t.IPv4 != nil {
		layers = append(layers, "ipv4")
	}
	if t.TCP != nil {
		layers = append(layers, "tcp")
	}
	payload, _ := t.PayloadBytes()

	_, err = fmt.Fprintf(w, "VALID: Template %q: %s, %d payload byte(s)\n",
		t.Name, strings.Join(layers, "/"), len(payload))
	return err
}
