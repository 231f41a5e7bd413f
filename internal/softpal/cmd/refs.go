package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"softpal/internal/analysis"
	"softpal/internal/config"
	"softpal/internal/softpal/styles"
	"softpal/internal/ui/colorize"
)

var refsCmd = &cobra.Command{
	Use:   "refs [file]",
	Short: "List text references",
	Long: `List every character name and message reference found in a script,
in stream order. Each line holds the operand offset, the kind and the
pushed string-table offset.`,
	Example: `
# All references
softpal refs SCRIPT.SRC

# Only messages, as JSON
softpal refs --json --kind message SCRIPT.SRC
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveFile(args[0])
		if err != nil {
			return err
		}
		filter, err := kindFilter(cmd, configFrom(cmd.Context()))
		if err != nil {
			return err
		}

		sum, err := Summarize(path, filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		switch {
		case asJSON:
			err = writeRefsJSON(out, sum.Refs)
		case isTerminal(out) && colorize.Enabled():
			err = writeRefsStyled(out, sum.Refs)
		default:
			err = writeRefs(out, sum.Refs)
		}
		if err != nil {
			return err
		}
		if sum.Err != nil {
			return fmt.Errorf("scan stopped after %d references: %w", len(sum.Refs), sum.Err)
		}
		return nil
	},
}

func init() {
	refsCmd.Flags().BoolP("json", "j", false, "Output references as JSON")
	refsCmd.Flags().StringSliceP("kind", "k", nil, "Only report these kinds (name, message)")
}

// kindFilter prefers the --kind flag over the config file.
func kindFilter(cmd *cobra.Command, cfg *config.Config) (analysis.KindFilter, error) {
	if !cmd.Flags().Changed("kind") {
		return cfg.KindFilter()
	}
	kinds, _ := cmd.Flags().GetStringSlice("kind")
	flagCfg := config.Config{Kinds: kinds}
	return flagCfg.KindFilter()
}

func writeRefs(w io.Writer, refs []analysis.TextRef) error {
	bw := bufio.NewWriter(w)
	for _, ref := range refs {
		fmt.Fprintln(bw, ref.String())
	}
	return bw.Flush()
}

func writeRefsJSON(w io.Writer, refs []analysis.TextRef) error {
	if refs == nil {
		refs = []analysis.TextRef{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(refs); err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}
	return nil
}

func writeRefsStyled(w io.Writer, refs []analysis.TextRef) error {
	offsetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.Offset))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.Value))
	kindStyles := map[analysis.TextKind]lipgloss.Style{
		analysis.CharacterName: lipgloss.NewStyle().Foreground(lipgloss.Color(styles.NameKind)).Width(8),
		analysis.Message:       lipgloss.NewStyle().Foreground(lipgloss.Color(styles.MessageKey)).Width(8),
	}

	bw := bufio.NewWriter(w)
	for _, ref := range refs {
		fmt.Fprintf(bw, "%s %s %s\n",
			offsetStyle.Render(fmt.Sprintf("%08X", ref.Offset)),
			kindStyles[ref.Kind].Render(ref.Kind.String()),
			valueStyle.Render(fmt.Sprintf("0x%08X", uint32(ref.Value))))
	}
	return bw.Flush()
}
