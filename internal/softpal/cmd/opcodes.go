package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"softpal/internal/sv20"
)

var opcodesCmd = &cobra.Command{
	Use:   "opcodes",
	Short: "Print the Sv20 opcode table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bw := bufio.NewWriter(cmd.OutOrStdout())
		for _, op := range sv20.Opcodes() {
			name, ok := op.Mnemonic()
			if !ok {
				name = "-"
			}
			sig := op.Signature.String()
			if sig == "" {
				sig = "-"
			}
			fmt.Fprintf(bw, "%04X %-24s %s\n", op.Code, name, sig)
		}
		return bw.Flush()
	},
}
