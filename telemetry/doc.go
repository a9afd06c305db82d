// Package telemetry builds the OpenTelemetry tracer provider used by the
// stingbot binaries.
//
// Finished spans are written to a slog.Logger by LogSpanExporter, so a
// mission's turn and dispatch timeline shows up in the ordinary log stream
// without running a collector.
package telemetry
