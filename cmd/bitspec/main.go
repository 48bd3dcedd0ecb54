package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bitspec/internal/version"
)

// errFailed signals that diagnostics were already printed and the process
// should exit with status 1 without another message.
var errFailed = errors.New("check failed")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bitspec",
		Short:         "Directive resolver and layout planner for bit-level codecs",
		Long:          `bitspec validates deku-style codec directives in YAML schemas and prints the resolved layout plan`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			traceCleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeTracing()
		},
	}

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show per file (0 = all)")
	rootCmd.PersistentFlags().String("config", "", "path to bitspec.toml (default: search upwards from the input)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept by the ring tracer")

	// --version prints a single fingerprint line
	rootCmd.SetVersionTemplate(version.Line() + "\n")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// main builds the CLI and exits with status 1 when a command fails.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		// PersistentPostRun is not called on error
		closeTracing()
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves --color against the output stream.
func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		f, ok := cmd.OutOrStdout().(*os.File)
		return ok && isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected: auto|on|off)", colorFlag)
}
