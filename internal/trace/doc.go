// Package trace records what the checker is doing, for diagnosing slow or
// surprising runs.
//
// # Usage
//
//	bitspec check --trace=- --trace-level=detail schemas/
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when the run fails
//   - MultiTracer: combines several tracers
//
// # Levels and scopes
//
// LevelPhase emits driver and pass spans (load, resolve, cache); LevelDetail
// adds one span per schema file; LevelDebug emits everything.
//
// Tracers travel through the driver via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "resolve", parentID)
//	defer span.End("")
package trace
