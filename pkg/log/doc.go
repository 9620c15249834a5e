// Package log provides structured trace logging for the SoC model.
//
// This package defines the Logger interface and Event types for capturing
// bus transactions, clock and reset state changes and bridge traffic. It is
// separate from operational logging (slog): a trace is a complete,
// machine-readable record of what happened on the bus and when.
//
// # Basic Usage
//
// Components accept a Logger; nil disables tracing:
//
//	// For development: log to console via slog
//	opts = append(opts, soc.WithTrace(log.NewSlogAdapter(slog.Default())))
//
//	// For later analysis: write to a binary trace file
//	fl, _ := log.NewFileLogger("run.etrace")
//
//	// Both: use MultiLogger
//	log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events are captured at three layers:
//   - Bus: completed, errored, stalled and aborted transactions (TransactionEvent)
//   - Clock: reset and PLL lock transitions (StateChangeEvent)
//   - Bridge: raw frames (FrameEvent) and decoded messages (MessageEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with the .etrace
// extension. The etpu-trace command provides viewing, filtering and export.
package log
