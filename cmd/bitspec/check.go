package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"bitspec/internal/diagfmt"
	"bitspec/internal/driver"
	"bitspec/internal/project"
	"bitspec/internal/schema"
	"bitspec/internal/source"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file.yaml|directory|->",
		Short: "Validate codec directives in a schema file or directory",
		Long: `Resolve every container in a YAML schema (or every *.yaml/*.yml file under a
directory) and report directive problems. Exits with status 1 when anything is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	cmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	cmd.Flags().String("endian", "little", "target byte order when none is declared (big|little)")
	cmd.Flags().Bool("cache", false, "reuse results for unchanged files from the on-disk cache")
	cmd.Flags().String("ui", "auto", "show a progress view for directories (auto|on|off)")
	return cmd
}

// checkOutput is what runCheck hands to a renderer.
type checkOutput struct {
	fs       *source.FileSet
	results  []driver.FileResult
	color    bool
	withNote bool
	pathMode diagfmt.PathMode
	settings settings
}

// runCheck executes `bitspec check`: it resolves the input, renders
// diagnostics in the chosen format and fails when any file did.
func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	input := args[0]
	s, err := loadSettings(cmd, input)
	if err != nil {
		return err
	}
	if !slices.Contains(project.Formats, s.format) {
		return fmt.Errorf("unknown format: %s (expected: %s)", s.format, strings.Join(project.Formats, "|"))
	}
	pathModeStr, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	pathMode, ok := diagfmt.ParsePathMode(pathModeStr)
	if !ok {
		return fmt.Errorf("unknown path mode: %s", pathModeStr)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}
	opts, err := s.driverOptions()
	if err != nil {
		return err
	}

	out := checkOutput{color: color, withNote: withNotes, pathMode: pathMode, settings: s}
	switch {
	case input == "-":
		content, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		fs, res, checkErr := driver.CheckSource(cmd.Context(), "<stdin>", content, opts)
		if res == nil {
			return checkErr
		}
		out.fs, out.results = fs, []driver.FileResult{*res}
	default:
		st, statErr := os.Stat(input)
		if statErr != nil {
			return statErr
		}
		if st.IsDir() {
			showUI, uiErr := useProgressUI(cmd, s.format)
			if uiErr != nil {
				return uiErr
			}
			run := driver.CheckDir
			if showUI {
				run = func(ctx context.Context, dir string, opts driver.Options) (*source.FileSet, []driver.FileResult, error) {
					return runCheckDirWithUI(ctx, cmd.ErrOrStderr(), dir, opts)
				}
			}
			fs, results, dirErr := run(cmd.Context(), input, opts)
			if dirErr != nil {
				dumpTraceRing(cmd.ErrOrStderr(), dirErr.Error())
				return dirErr
			}
			out.fs, out.results = fs, results
		} else {
			fs, res, checkErr := driver.Check(cmd.Context(), input, opts)
			if res == nil {
				return checkErr
			}
			out.fs, out.results = fs, []driver.FileResult{*res}
		}
	}

	w := cmd.OutOrStdout()
	switch s.format {
	case "pretty":
		renderPretty(w, cmd.ErrOrStderr(), out)
	case "short":
		renderShort(w, cmd.ErrOrStderr(), out)
	case "json":
		if err := renderJSON(w, out); err != nil {
			return err
		}
	}
	if s.timings {
		renderTimings(cmd.ErrOrStderr(), out.results)
	}

	for i := range out.results {
		if out.results[i].Failed() {
			dumpTraceOnFailure(cmd.ErrOrStderr())
			return errFailed
		}
	}
	return nil
}

// useProgressUI resolves --ui. auto draws only when both streams are
// terminals and the output is meant for humans.
func useProgressUI(cmd *cobra.Command, format string) (bool, error) {
	mode, err := cmd.Flags().GetString("ui")
	if err != nil {
		return false, fmt.Errorf("failed to get ui flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		if format == "json" {
			return false, nil
		}
		out, ok := cmd.OutOrStdout().(*os.File)
		errf, ok2 := cmd.ErrOrStderr().(*os.File)
		return ok && ok2 && isTerminal(out) && isTerminal(errf), nil
	}
	return false, fmt.Errorf("invalid --ui value %q (expected: auto|on|off)", mode)
}

func displayPath(out checkOutput, r *driver.FileResult) string {
	// файлы, не прочитанные с диска, в FileSet не попали
	if f := out.fs.Get(r.FileID); f != nil && f.Path == r.Path {
		return diagfmt.FormatPath(f, out.fs, out.pathMode)
	}
	return r.Path
}

// loadErrorLine prints a loader failure the way diagnostics are printed.
func loadErrorLine(r *driver.FileResult) string {
	var lerr *schema.LoadError
	if errors.As(r.Err, &lerr) {
		return lerr.Error()
	}
	return r.Err.Error()
}

func renderPretty(w, errw io.Writer, out checkOutput) {
	opts := diagfmt.PrettyOpts{
		Color:     out.color,
		Context:   1,
		PathMode:  out.pathMode,
		ShowNotes: out.withNote,
		Max:       out.settings.maxDiagnostics,
	}
	multi := len(out.results) > 1
	failed := 0
	for i := range out.results {
		r := &out.results[i]
		if !r.Failed() {
			continue
		}
		if failed > 0 {
			fmt.Fprintln(w)
		}
		failed++
		if multi {
			fmt.Fprintf(w, "== %s ==\n", displayPath(out, r))
		}
		if r.Err != nil {
			fmt.Fprintln(w, loadErrorLine(r))
			continue
		}
		diagfmt.Pretty(w, r.Bag, out.fs, opts)
	}
	if multi {
		fmt.Fprintf(errw, "%d file(s) checked, %d with problems\n", len(out.results), failed)
	}
}

func renderShort(w, _ io.Writer, out checkOutput) {
	opts := diagfmt.ShortOpts{PathMode: out.pathMode, Max: out.settings.maxDiagnostics}
	for i := range out.results {
		r := &out.results[i]
		if r.Err != nil {
			fmt.Fprintln(w, loadErrorLine(r))
			continue
		}
		diagfmt.Short(w, r.Bag, out.fs, opts)
	}
}

// fileJSON is one entry of `check --format json` output.
type fileJSON struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
	// Cached is set when the result came from the on-disk cache.
	Cached bool `json:"cached,omitempty"`
	diagfmt.DiagnosticsOutput
}

func renderJSON(w io.Writer, out checkOutput) error {
	opts := diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         out.pathMode,
		Max:              out.settings.maxDiagnostics,
		IncludeNotes:     out.withNote,
	}
	files := make([]fileJSON, 0, len(out.results))
	for i := range out.results {
		r := &out.results[i]
		entry := fileJSON{Path: displayPath(out, r), Cached: r.Cached}
		if r.Err != nil {
			entry.Error = loadErrorLine(r)
			entry.Diagnostics = []diagfmt.DiagnosticJSON{}
		} else {
			entry.DiagnosticsOutput = diagfmt.BuildDiagnosticsOutput(r.Bag, out.fs, opts)
		}
		files = append(files, entry)
	}
	data, err := json.MarshalIndent(map[string]any{"files": files}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderTimings(w io.Writer, results []driver.FileResult) {
	for i := range results {
		r := &results[i]
		if r.Timing == nil {
			continue
		}
		fmt.Fprintf(w, "%s: total %.2f ms\n", r.Path, r.Timing.TotalMS)
		for _, p := range r.Timing.Phases {
			fmt.Fprintf(w, "  %-12s %7.2f ms", p.Name, p.DurationMS)
			if p.Note != "" {
				fmt.Fprintf(w, "  // %s", p.Note)
			}
			fmt.Fprintln(w)
		}
	}
}
