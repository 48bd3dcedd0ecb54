package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bitspec/internal/trace"
)

var (
	// activeTracer is what dumpTraceOnPanic and closeTracing work on.
	activeTracer trace.Tracer = trace.Nop
	traceCleanup              = func() {}
)

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// --trace without a level means phase boundaries
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer

	root.SetContext(trace.WithTracer(root.Context(), tracer))
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	return func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// closeTracing runs the tracer cleanup at most once.
func closeTracing() {
	cleanup := traceCleanup
	traceCleanup = func() {}
	cleanup()
	activeTracer = trace.Nop
}

// dumpTraceRing prints the ring buffer, if any, to w.
func dumpTraceRing(w io.Writer, reason string) {
	ring := trace.RingOf(activeTracer)
	if ring == nil || ring.Len() == 0 {
		return
	}
	fmt.Fprintf(w, "--- trace (%s) ---\n", reason)
	_ = ring.Dump(w, trace.FormatText)
}

// dumpTraceOnFailure prints the ring when it is the only trace output
// (--trace-level=error or --trace-mode=ring); streamed events were already seen.
func dumpTraceOnFailure(w io.Writer) {
	if _, ringOnly := activeTracer.(*trace.RingTracer); ringOnly {
		dumpTraceRing(w, "check failed")
	}
}

// dumpTraceOnPanic dumps the ring and re-raises; use as `defer dumpTraceOnPanic()`.
func dumpTraceOnPanic() {
	if r := recover(); r != nil {
		dumpTraceRing(os.Stderr, fmt.Sprint("panic: ", r))
		closeTracing()
		panic(r)
	}
}
