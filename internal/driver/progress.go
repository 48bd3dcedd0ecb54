package driver

import "time"

// Stage describes a per-file phase of a check run.
type Stage string

const (
	// StageCache is the cache lookup.
	StageCache Stage = "cache"
	// StageLoad is schema loading.
	StageLoad Stage = "load"
	// StageResolve is directive resolution.
	StageResolve Stage = "resolve"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the file is in Stage.
	StatusWorking Status = "working"
	// StatusDone indicates the file finished without problems.
	StatusDone Status = "done"
	// StatusError indicates the file produced diagnostics or failed to load.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the whole run when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. CheckDir calls OnEvent from
// several goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
