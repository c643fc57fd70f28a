// Package log provides the structured delivery trace for the event-delivery layer.
//
// This package defines the Logger interface and Event types for capturing
// what happens to outbound and inbound events at three layers: transport
// (raw frames), wire (decoded messages) and delivery (queueing, acks,
// timeouts, retries and connection state). It is separate from operational
// logging (slog): the trace is a complete machine-readable record for
// debugging delivery problems after the fact.
//
// # Basic Usage
//
//	// Development: trace to the console via slog
//	cfg.TraceLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append to a CBOR trace file
//	cfg.TraceLogger, _ = log.NewFileLogger("/var/log/easyorder/client.elog")
//
//	// Both
//	cfg.TraceLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys and the
// .elog extension. The easyorder-log command views and summarises them.
package log
