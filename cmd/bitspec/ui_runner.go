package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"bitspec/internal/driver"
	"bitspec/internal/source"
	"bitspec/internal/ui"
)

type dirOutcome struct {
	fs      *source.FileSet
	results []driver.FileResult
	err     error
}

// runCheckDirWithUI runs CheckDir while a progress view draws on w.
func runCheckDirWithUI(ctx context.Context, w io.Writer, dir string, opts driver.Options) (*source.FileSet, []driver.FileResult, error) {
	files, err := driver.ListSchemaFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		fs, results, err := driver.CheckDir(ctx, dir, optsCopy)
		close(events)
		outcomeCh <- dirOutcome{fs: fs, results: results, err: err}
	}()

	title := fmt.Sprintf("checking %d schema file(s)", len(files))
	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(w), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// после ctrl+c модель больше не читает канал
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.fs, outcome.results, uiErr
	}
	return outcome.fs, outcome.results, outcome.err
}
