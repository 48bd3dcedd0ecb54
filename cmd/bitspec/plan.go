package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"bitspec/internal/diagfmt"
	"bitspec/internal/driver"
	"bitspec/internal/layout"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [flags] <file.yaml>",
		Short: "Print the resolved layout plan of a schema",
		Long: `Resolve a YAML schema and print the layout plan code generators consume.
Nothing is printed when the schema has diagnostics; those go to stderr instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}
	cmd.Flags().String("format", "text", "output format (text|json)")
	cmd.Flags().String("endian", "little", "target byte order when none is declared (big|little)")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s (expected: text|json)", format)
	}
	s, err := loadSettings(cmd, args[0])
	if err != nil {
		return err
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}

	fs, res, err := driver.Check(cmd.Context(), args[0], driver.Options{Target: s.target})
	if err != nil {
		return err
	}
	if res.Failed() {
		diagfmt.Pretty(cmd.ErrOrStderr(), res.Bag, fs, diagfmt.PrettyOpts{
			Color:     color,
			Context:   1,
			ShowNotes: true,
			Max:       s.maxDiagnostics,
		})
		dumpTraceOnFailure(cmd.ErrOrStderr())
		return errFailed
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := json.MarshalIndent(res.Plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return layout.Dump(out, res.Plan, layout.DumpOptions{Color: color})
}
