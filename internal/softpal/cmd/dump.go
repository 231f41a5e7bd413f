package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"softpal/internal/disasm"
	"softpal/internal/ui/colorize"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Disassemble a script",
	Long: `Print one line per instruction: the offset, the mnemonic (or the opcode
in hex when it has no name) and the operands. Pointer operands print as
[0x%08X], immediates as 0x%X.`,
	Example: `
# Colored dump on the terminal
softpal dump SCRIPT.SRC

# Plain dump to a file
softpal dump -o SCRIPT.txt SCRIPT.SRC
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveFile(args[0])
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer in.Close()

		d, err := disasm.New(in)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("could not create %s: %w", output, err)
			}
			n, err := d.WriteTo(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			slog.Info("Wrote dump", "file", output, "bytes", n)
			return err
		}

		out := cmd.OutOrStdout()
		if isTerminal(out) && colorize.Enabled() {
			return writeHighlighted(out, d, colorize.NewHighlighter(configFrom(cmd.Context()).Style))
		}
		_, err = d.WriteTo(out)
		return err
	},
}

func init() {
	dumpCmd.Flags().StringP("output", "o", "", "Write the plain dump to a file")
}

func writeHighlighted(w io.Writer, d *disasm.Disassembler, h *colorize.Highlighter) error {
	bw := bufio.NewWriter(w)
	for inst, err := range d.Insts() {
		if err != nil {
			if ferr := bw.Flush(); ferr != nil {
				return errors.Join(err, ferr)
			}
			return err
		}
		if _, err := fmt.Fprintln(bw, h.Line(inst.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
