package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName is the resource service name when none is configured.
const DefaultServiceName = "stingbot"

// Config controls tracing.
type Config struct {
	Enabled     bool
	ServiceName string
	Logger      *slog.Logger
	Level       slog.Level
}

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider returns a provider exporting spans through LogSpanExporter.
// When tracing is disabled the tracer is a no-op.
func NewProvider(cfg Config) *Provider {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(DefaultServiceName)}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tp := NewTracerProvider(cfg.ServiceName, NewLogSpanExporter(cfg.Logger, cfg.Level), cfg.Logger)
	return &Provider{tp: tp, tracer: tp.Tracer(cfg.ServiceName)}
}

// NewTracerProvider builds an SDK tracer provider that exports synchronously
// to exporter.
func NewTracerProvider(serviceName string, exporter sdktrace.SpanExporter, logger *slog.Logger) *sdktrace.TracerProvider {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
}

// Tracer returns the mission tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
