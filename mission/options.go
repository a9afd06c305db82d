package mission

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/stingbot/guardrail"
)

const (
	// DefaultMaxTurns bounds the decision loop.
	DefaultMaxTurns = 15

	// DefaultTaskTruncate is how much of a task is kept in edge actions
	// and error entries.
	DefaultTaskTruncate = 50
)

// TargetPolicy vets targets named in a task. *guardrail.Guardrails satisfies it.
type TargetPolicy interface {
	FilterAction(action guardrail.ActionType, payload string) guardrail.Verdict
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMaxTurns sets the turn budget. Values below 1 are ignored.
func WithMaxTurns(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithTaskTruncate sets how many characters of a task are recorded.
func WithTaskTruncate(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.taskTruncate = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer for mission spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Supervisor) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMeter sets the meter for mission counters.
func WithMeter(meter metric.Meter) Option {
	return func(s *Supervisor) {
		if meter != nil {
			s.meter = meter
		}
	}
}

// WithGuardrails enables the pre-dispatch target check. Tasks naming an
// IPv4 literal or localhost that the policy rejects are not dispatched.
func WithGuardrails(policy TargetPolicy) Option {
	return func(s *Supervisor) {
		s.guard = policy
	}
}

// WithEvents publishes progress events.
func WithEvents(p Publisher) Option {
	return func(s *Supervisor) {
		s.events = p
	}
}

// WithDebriefer hands every finished mission to d.
func WithDebriefer(d Debriefer) Option {
	return func(s *Supervisor) {
		s.debriefer = d
	}
}

// WithMissionID fixes the mission id instead of generating one.
func WithMissionID(id string) Option {
	return func(s *Supervisor) {
		s.missionID = id
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}
