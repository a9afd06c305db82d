package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogSpanExporter writes finished spans to a structured logger.
type LogSpanExporter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSpanExporter creates an exporter logging at level.
func NewLogSpanExporter(logger *slog.Logger, level slog.Level) *LogSpanExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpanExporter{logger: logger, level: level}
}

// ExportSpans logs each span. Spans with an error status are logged at
// warn level or above.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()

		attrs := []any{
			"span", span.Name(),
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
		}
		if span.Parent().IsValid() {
			attrs = append(attrs, "parent_span_id", span.Parent().SpanID().String())
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), attributeValue(kv.Value))
		}

		level := e.level
		if span.Status().Code == codes.Error {
			attrs = append(attrs, "status", span.Status().Description)
			if level < slog.LevelWarn {
				level = slog.LevelWarn
			}
		}

		e.logger.Log(ctx, level, "span finished", attrs...)
	}
	return nil
}

// Shutdown is a no-op; the logger outlives the exporter.
func (e *LogSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

func attributeValue(v attribute.Value) any {
	switch v.Type() {
	case attribute.BOOL:
		return v.AsBool()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.STRING:
		return v.AsString()
	default:
		return v.Emit()
	}
}
