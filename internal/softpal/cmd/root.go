package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"softpal/internal/config"
	"softpal/internal/softpal/log"
	"softpal/internal/softpal/styles"
	"softpal/internal/ui/colorize"
)

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: softpal.toml in the working directory or $XDG_CONFIG_HOME/softpal)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print a summary without the TUI")
	rootCmd.Flags().StringSliceP("kind", "k", nil, "Only report these kinds (name, message)")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(refsCmd, dumpCmd, opcodesCmd, schemaCmd)
}

var rootCmd = &cobra.Command{
	Use:   "softpal [file]",
	Short: "Locate text references in Softpal Sv20 scripts",
	Long: `Softpal scans Sv20 script bytecode and reports where character names,
messages and choices load their strings from the text table.
It provides an interactive TUI for browsing the references and the disassembly.`,
	Example: `
# Browse a script interactively
softpal SCRIPT.SRC

# Print a summary instead of starting the TUI
softpal -n SCRIPT.SRC

# List message references as JSON
softpal refs --json --kind message SCRIPT.SRC
  `,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Setup(cfg.Debug)
		if cfg.NoColor {
			os.Setenv(colorize.NoColorEnv, "1")
		}
		if cfg.Path != "" {
			slog.Debug("Loaded config", "path", cfg.Path)
		}
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					slog.Error("Could not create memory profile", "error", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					slog.Error("Could not write memory profile", "error", err)
				}
			}()
		}

		cfg := configFrom(cmd.Context())
		path, err := resolveFile(args[0])
		if err != nil {
			return err
		}
		filter, err := kindFilter(cmd, cfg)
		if err != nil {
			return err
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		out := cmd.OutOrStdout()
		if !isTerminal(out) {
			noTUI = true
		}

		if noTUI {
			sum, err := Summarize(path, filter)
			if err != nil {
				return err
			}
			md := sum.Markdown()
			if isTerminal(out) && colorize.Enabled() {
				md = styles.Render(md, cfg.Width)
			}
			fmt.Fprint(out, md)
			return sum.Err
		}

		program := tea.NewProgram(
			NewModel(path, filter, cfg),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFrom returns the settings stored by the root pre-run hook.
func configFrom(ctx context.Context) *config.Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return cfg
		}
	}
	return config.Default()
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("no-color") {
		cfg.NoColor, _ = cmd.Flags().GetBool("no-color")
	}
	return cfg, nil
}

func resolveFile(file string) (string, error) {
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", file)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	return absPath, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// Execute runs the root command. The error has already been printed.
func Execute() error {
	// Bypass fang's styled help and errors when output is piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		return rootCmd.Execute()
	}

	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	)
}
