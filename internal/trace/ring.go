package trace

import (
	"fmt"
	"io"
	"sync"
)

// RingTracer keeps the last events of a run in memory so that a failed
// check can print what led up to it. Older events are overwritten.
type RingTracer struct {
	mu      sync.Mutex
	buf     []Event
	next    int    // slot for the next event
	count   int    // stored events, at most len(buf)
	dropped uint64 // overwritten events
	level   Level
}

// NewRingTracer creates a RingTracer holding up to capacity events
// (4096 when capacity <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// Emit stores a copy of ev, overwriting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == len(t.buf) {
		t.dropped++
	} else {
		t.count++
	}
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
}

// Len returns the number of stored events.
func (t *RingTracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Dropped returns how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Snapshot returns a copy of the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Dump writes the stored events to w. In text format a leading line
// reports overwritten events, if any.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	if format != FormatNDJSON {
		if n := t.Dropped(); n > 0 {
			if _, err := fmt.Fprintf(w, "... %d earlier event(s) dropped\n", n); err != nil {
				return err
			}
		}
	}
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op: everything is in memory.
func (t *RingTracer) Flush() error { return nil }

// Close is a no-op.
func (t *RingTracer) Close() error { return nil }

// Level returns the tracing level.
func (t *RingTracer) Level() Level { return t.level }

// Enabled reports whether the level is above LevelOff.
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
