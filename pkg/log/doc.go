// Package log provides structured trace capture for clock observation runs.
//
// This package defines the Logger interface and Event types for recording
// what a run did at each layer (probe I/O, remote transport frames,
// observation state and samples). It is separate from operational logging
// (slog): a trace is a complete machine-readable record of a run that can
// be inspected after the fact with the ccmobs-trace tool.
//
// # Basic Usage
//
//	// For development: trace to the console via slog
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: write a binary trace file
//	cfg.Trace, _ = log.NewFileLogger("run.ctrace")
//
//	// Both
//	cfg.Trace = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three layers:
//   - Probe: register reads and writes (ProbeEvent)
//   - Transport: remote probe frames (FrameEvent)
//   - Observe: per-root state transitions (StateChangeEvent) and
//     individual sample windows (SampleEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with the .ctrace
// extension. Each event is wrapped in EventTag. Decoding rejects untagged
// items, repeated keys and indefinite lengths.
package log
