package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/stingbot/agent"
	"github.com/zero-day-ai/stingbot/guardrail"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/state"
)

const instrumentationName = "github.com/zero-day-ai/stingbot/mission"

// SupervisorNode is the source of every delegation edge.
const SupervisorNode = "supervisor"

var (
	// ErrEmptyGoal is returned by RunMission for a blank goal.
	ErrEmptyGoal = errors.New("mission: goal is required")

	// ErrNoDecision wraps a decision query that failed; it is recorded, not returned.
	ErrNoDecision = errors.New("mission: no decision")
)

// State is the attack-graph store a mission writes to. *state.Manager
// satisfies it.
type State interface {
	UpdateMemory(ctx context.Context, key string, value any) error
	AddEdge(ctx context.Context, source, target, action, result string) error
	AppendError(ctx context.Context, msg string) error
	SetStatus(ctx context.Context, status string) error
	ExportSummary() state.Summary
	Errors() []string
}

// Supervisor runs missions against a fixed set of agents.
type Supervisor struct {
	llm    llm.Querier
	state  State
	agents *agent.Registry

	maxTurns     int
	taskTruncate int
	guard        TargetPolicy
	events       Publisher
	debriefer    Debriefer
	missionID    string
	now          func() time.Time

	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	turnCounter     metric.Int64Counter
	dispatchCounter metric.Int64Counter
	unknownCounter  metric.Int64Counter
}

// NewSupervisor creates a supervisor.
func NewSupervisor(q llm.Querier, st State, agents *agent.Registry, opts ...Option) (*Supervisor, error) {
	if q == nil {
		return nil, errors.New("mission: llm querier is required")
	}
	if st == nil {
		return nil, errors.New("mission: state is required")
	}
	if agents == nil {
		agents = agent.NewRegistry()
	}

	s := &Supervisor{
		llm:          q,
		state:        st,
		agents:       agents,
		maxTurns:     DefaultMaxTurns,
		taskTruncate: DefaultTaskTruncate,
		now:          time.Now,
		logger:       slog.Default(),
		tracer:       tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:        metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.missionID == "" {
		s.missionID = uuid.NewString()
	}
	s.logger = s.logger.With("mission_id", s.missionID)

	var err error
	if s.turnCounter, err = s.meter.Int64Counter("stingbot.mission.turns",
		metric.WithDescription("Decision turns taken")); err != nil {
		return nil, fmt.Errorf("failed to create turn counter: %w", err)
	}
	if s.dispatchCounter, err = s.meter.Int64Counter("stingbot.mission.dispatches",
		metric.WithDescription("Tasks delegated to agents")); err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}
	if s.unknownCounter, err = s.meter.Int64Counter("stingbot.mission.unknown_agents",
		metric.WithDescription("Decisions naming an unregistered agent")); err != nil {
		return nil, fmt.Errorf("failed to create unknown agent counter: %w", err)
	}

	return s, nil
}

// MissionID returns the id used in logs, spans and events.
func (s *Supervisor) MissionID() string {
	return s.missionID
}

// RunMission drives goal to completion or until the turn budget is spent.
//
// The returned error is non-nil only for a blank goal, a cancelled context
// or a persistence failure. Decision failures, unknown agents and agent
// errors are recorded in the state and the mission continues.
func (s *Supervisor) RunMission(ctx context.Context, goal string) (outcome *Outcome, err error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, ErrEmptyGoal
	}

	if !s.agents.Frozen() {
		s.agents.Freeze()
		defer s.agents.Unfreeze()
	}

	start := s.now()
	ctx, span := s.tracer.Start(ctx, "mission.Run", trace.WithAttributes(
		attribute.String("mission_id", s.missionID),
		attribute.Int("max_turns", s.maxTurns),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("status", string(outcome.Status)),
				attribute.Int("turns", outcome.Turns),
			)
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	s.logger.Info("mission started", "goal", goal, "max_turns", s.maxTurns, "agents", s.agents.Names())
	s.publish(ctx, Event{Type: EventStarted, Message: goal})

	if err := s.state.UpdateMemory(ctx, state.KeyMissionGoal, goal); err != nil {
		return nil, err
	}
	plan, err := s.decompose(ctx, goal)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, s.cancel(ctxErr)
		}
		s.logger.Warn("goal decomposition failed", "error", err)
		if err := s.state.AppendError(ctx, fmt.Sprintf("Decomposition failed: %v", err)); err != nil {
			return nil, err
		}
	}
	if err := s.state.UpdateMemory(ctx, state.KeyInitialPlan, plan); err != nil {
		return nil, err
	}

	var (
		status   = StatusExhausted
		message  = DefaultCompletionMessage
		turns    int
		used     []string
		seenUsed = make(map[string]struct{})
	)

	for turn := 1; turn <= s.maxTurns; turn++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, s.cancel(ctxErr)
		}
		turns = turn

		res, err := s.runTurn(ctx, goal, turn)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, s.cancel(ctxErr)
			}
			return nil, err
		}
		if res.dispatched != "" {
			if _, ok := seenUsed[res.dispatched]; !ok {
				seenUsed[res.dispatched] = struct{}{}
				used = append(used, res.dispatched)
			}
		}
		if res.complete {
			status = StatusComplete
			if res.message != "" {
				message = CompletionBanner + " " + res.message
			}
			break
		}
	}

	stateStatus := state.StatusComplete
	if status == StatusExhausted {
		stateStatus = state.StatusExhausted
		s.logger.Warn("mission reached max turns without completion", "turns", turns)
	}
	if err := s.state.SetStatus(ctx, stateStatus); err != nil {
		return nil, err
	}

	outcome = &Outcome{
		MissionID: s.missionID,
		Status:    status,
		Turns:     turns,
		Message:   message,
		Agents:    used,
		Errors:    s.state.Errors(),
		Duration:  s.now().Sub(start),
	}

	s.logger.Info("mission finished", "status", status, "turns", turns, "agents", used)
	s.publish(ctx, Event{Type: EventFinished, Turn: turns, Message: message})
	s.debrief(ctx, goal, outcome)

	return outcome, nil
}

type turnResult struct {
	complete   bool
	message    string
	dispatched string
}

// runTurn performs one decide/dispatch step. Only persistence failures and
// context errors are returned.
func (s *Supervisor) runTurn(ctx context.Context, goal string, turn int) (turnResult, error) {
	ctx, span := s.tracer.Start(ctx, "mission.turn", trace.WithAttributes(
		attribute.String("mission_id", s.missionID),
		attribute.Int("turn", turn),
	))
	defer span.End()

	s.turnCounter.Add(ctx, 1)
	s.publish(ctx, Event{Type: EventTurn, Turn: turn})
	s.logger.Debug("reasoning", "turn", turn, "max_turns", s.maxTurns)

	summary := s.state.ExportSummary()
	prompt := decisionPrompt(goal, summary.String(), s.agents.Names())

	reply, err := s.llm.Query(ctx, prompt, SupervisorSystemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return turnResult{}, ctx.Err()
		}
		err = fmt.Errorf("%w: %w", ErrNoDecision, err)
		span.RecordError(err)
		s.logger.Warn("decision failed", "turn", turn, "error", err)
		return turnResult{}, s.state.AppendError(ctx, fmt.Sprintf("Turn %d: Decision failed: %v", turn, err))
	}

	if msg, ok := CompletionMessage(reply); ok {
		span.SetAttributes(attribute.Bool("complete", true))
		s.logger.Info("completion signalled", "turn", turn)
		return turnResult{complete: true, message: msg}, nil
	}

	d := ParseDecision(reply)
	name, ok := s.resolve(d.Agent)
	if !ok {
		s.unknownCounter.Add(ctx, 1)
		entry := fmt.Sprintf("Turn %d: Unknown agent '%s' requested for task: %s", turn, d.Agent, s.truncateTask(d.Task))
		s.logger.Warn("unknown agent requested", "turn", turn, "agent", d.Agent)
		s.publish(ctx, Event{Type: EventUnknownAgent, Turn: turn, Agent: d.Agent, Task: d.Task})
		return turnResult{}, s.state.AppendError(ctx, entry)
	}

	s.logger.Info("decision made", "turn", turn, "agent", name, "requested", d.Agent, "task", s.truncateTask(d.Task))
	span.SetAttributes(attribute.String("agent", name))

	action := "delegate: " + s.truncateTask(d.Task)

	if reason, blocked := s.checkTargets(d.Task); blocked {
		s.logger.Warn("dispatch blocked by guardrails", "turn", turn, "agent", name, "reason", reason)
		s.dispatchCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", name),
			attribute.String("status", "blocked"),
		))
		return turnResult{}, s.state.AddEdge(ctx, SupervisorNode, name, action, "blocked: "+reason)
	}

	result := s.dispatch(ctx, turn, name, d.Task)
	if ctx.Err() != nil {
		return turnResult{}, ctx.Err()
	}
	if err := s.state.AddEdge(ctx, SupervisorNode, name, action, result); err != nil {
		return turnResult{}, err
	}
	return turnResult{dispatched: name}, nil
}

// resolve maps a requested name to a registered agent.
func (s *Supervisor) resolve(requested string) (string, bool) {
	if _, ok := s.agents.Get(requested); ok {
		return requested, true
	}
	return MatchAgent(requested, s.agents.Names())
}

// dispatch executes the agent and returns the text recorded as the edge result.
func (s *Supervisor) dispatch(ctx context.Context, turn int, name, task string) string {
	ctx, span := s.tracer.Start(ctx, "mission.dispatch", trace.WithAttributes(
		attribute.String("mission_id", s.missionID),
		attribute.Int("turn", turn),
		attribute.String("agent", name),
	))
	defer span.End()

	a, _ := s.agents.Get(name)
	s.publish(ctx, Event{Type: EventDispatched, Turn: turn, Agent: name, Task: task})

	res, err := agent.SafeExecute(ctx, a, task)
	status := res.Status.String()
	var result string
	if err != nil {
		status = "error"
		result = "error: " + err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("agent failed", "turn", turn, "agent", name, "error", err)
		if appendErr := s.state.AppendError(ctx, fmt.Sprintf("Turn %d: Agent '%s' failed: %v", turn, name, err)); appendErr != nil {
			s.logger.Error("failed to record agent error", "error", appendErr)
		}
	} else {
		result = res.SummaryOr("Done")
		s.logger.Info("agent finished", "turn", turn, "agent", name, "status", res.Status)
	}

	s.dispatchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", name),
		attribute.String("status", status),
	))
	return result
}

// decompose asks for the initial stage plan. It runs once per mission.
func (s *Supervisor) decompose(ctx context.Context, goal string) (string, error) {
	return s.llm.Query(ctx, decomposePrompt(goal), "")
}

var (
	ipv4Re      = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	localhostRe = regexp.MustCompile(`(?i)\blocalhost\b`)
)

// checkTargets applies the optional pre-dispatch guard to targets named in
// the task.
func (s *Supervisor) checkTargets(task string) (string, bool) {
	if s.guard == nil {
		return "", false
	}
	targets := ipv4Re.FindAllString(task, -1)
	if localhostRe.MatchString(task) {
		targets = append(targets, "localhost")
	}
	for _, t := range targets {
		if v := s.guard.FilterAction(guardrail.ActionTarget, t); !v.Safe {
			return v.Reason, true
		}
	}
	return "", false
}

func (s *Supervisor) truncateTask(task string) string {
	r := []rune(task)
	if len(r) <= s.taskTruncate {
		return task
	}
	return string(r[:s.taskTruncate])
}

// cancel marks the mission cancelled on a best-effort basis.
func (s *Supervisor) cancel(cause error) error {
	s.logger.Warn("mission cancelled", "error", cause)
	if err := s.state.SetStatus(context.Background(), state.StatusCancelled); err != nil {
		s.logger.Error("failed to record cancellation", "error", err)
	}
	return fmt.Errorf("mission %s cancelled: %w", s.missionID, cause)
}

func (s *Supervisor) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	ev.MissionID = s.missionID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish mission event", "type", ev.Type, "error", err)
	}
}

func (s *Supervisor) debrief(ctx context.Context, goal string, o *Outcome) {
	if s.debriefer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("debrief panicked", "panic", r)
		}
	}()

	record := Record{
		MissionID: o.MissionID,
		Goal:      goal,
		Turns:     o.Turns,
		Agents:    o.Agents,
		Outcome:   o.Status,
		Errors:    o.Errors,
		Duration:  o.Duration,
		EndedAt:   s.now(),
	}
	if err := s.debriefer.Debrief(ctx, record); err != nil {
		s.logger.Warn("debrief failed", "error", err)
	}
}
