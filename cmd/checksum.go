package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktbuilder/internal/config"
	"firestige.xyz/pktbuilder/pkg/checksum"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <hex>...",
	Short: "Compute the RFC 1071 Internet checksum of hex input",
	Long: `Compute the RFC 1071 Internet checksum over the concatenation of the hex
arguments. Odd-length input is padded with a zero byte.

When the input already carries its checksum field the result is 0x0000,
which makes the command usable as a verifier.

Examples:
  pktbuilder checksum 45000014000000004011 0000 c0a80164c0a80101
  pktbuilder checksum 4500001c00000000401100000a0000010a000002`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecksum(args, cmd.OutOrStdout())
	},
}

func runChecksum(args []string, w io.Writer) error {
	data, err := config.DecodeHex(strings.Join(args, ""))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "0x%04x\n", checksum.Checksum(data))
	return err
}
