// Package log provides the lifecycle trace for the link power manager.
//
// The trace is separate from operational logging (slog). Every action the
// worker dispatches, every controller state change, every interrupt and every
// syscon sequence is captured as an Event so that a field failure (a link that
// never came back after resume, a wake that timed out) can be replayed after
// the fact.
//
// # Basic Usage
//
// Controllers accept a Logger in their config:
//
//	// For development: trace to console via slog
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// For field units: write a binary trace file
//	cfg.Trace, _ = log.NewFileLogger("/var/log/linkpm/rc0.lptrace")
//
//	// Both
//	cfg.Trace = log.NewMultiLogger(slogAdapter, fileLogger)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys. The
// linkpm-log CLI views, filters and summarizes them.
package log
