package stingbot

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/stingbot/agent"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/state"
)

// Option configures a Framework.
type Option func(*frameworkConfig)

type frameworkConfig struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	querier   llm.Querier
	agents    []agent.Agent
	events    mission.Publisher
	debriefer mission.Debriefer
	sinks     func(missionID string) []state.Sink
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *frameworkConfig) {
		c.logger = logger
	}
}

// WithTracer enables mission spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *frameworkConfig) {
		c.tracer = tracer
	}
}

// WithMeter enables mission counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *frameworkConfig) {
		c.meter = meter
	}
}

// WithQuerier replaces the configured model backend, e.g. with an
// llm.Scripted for offline runs. It serves both the supervisor and the
// built-in agents.
func WithQuerier(q llm.Querier) Option {
	return func(c *frameworkConfig) {
		c.querier = q
	}
}

// WithAgents registers extra agents after the built-in ones.
func WithAgents(agents ...agent.Agent) Option {
	return func(c *frameworkConfig) {
		c.agents = append(c.agents, agents...)
	}
}

// WithEvents publishes mission progress to p.
func WithEvents(p mission.Publisher) Option {
	return func(c *frameworkConfig) {
		c.events = p
	}
}

// WithDebriefer hands finished missions to d.
func WithDebriefer(d mission.Debriefer) Option {
	return func(c *frameworkConfig) {
		c.debriefer = d
	}
}

// WithSinks adds attack-graph mirrors built per mission.
func WithSinks(fn func(missionID string) []state.Sink) Option {
	return func(c *frameworkConfig) {
		c.sinks = fn
	}
}
