package stingbot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/stingbot/agent"
	"github.com/zero-day-ai/stingbot/config"
	"github.com/zero-day-ai/stingbot/exec"
	"github.com/zero-day-ai/stingbot/guardrail"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/queue"
	"github.com/zero-day-ai/stingbot/serve"
	"github.com/zero-day-ai/stingbot/state"
)

// Token purposes recorded by the tracker.
const (
	PurposeSupervisor = "supervisor"
	PurposeAgents     = "agents"
)

// Framework wires guardrails, the model backend, agents and state into
// ready-to-run missions.
type Framework struct {
	cfg    *config.Config
	opts   frameworkConfig
	logger *slog.Logger

	guard      *guardrail.Guardrails
	supervisor llm.Querier
	agents     llm.Querier
	tracker    *llm.DefaultTokenTracker

	closeOnce sync.Once
	closers   []namedCloser
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// Mission is a supervisor bound to its own attack-graph state.
type Mission struct {
	*mission.Supervisor
	State     *state.Manager
	Agents    *agent.Registry
	Workspace string
}

// New builds a framework from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Framework, error) {
	const op = "stingbot.New"

	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	f := &Framework{cfg: cfg, tracker: llm.NewTokenTracker()}
	for _, opt := range opts {
		opt(&f.opts)
	}
	f.logger = f.opts.logger
	if f.logger == nil {
		f.logger = slog.Default()
	}

	guard, err := guardrail.New(cfg.Guardrails)
	if err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: guardrails: %w", ErrInvalidConfig, err))
	}
	f.guard = guard

	if err := f.initLLM(); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: llm: %w", ErrInvalidConfig, err))
	}

	if err := f.initMirrors(); err != nil {
		f.Close()
		return nil, NewConfigurationError(op, err)
	}

	return f, nil
}

func (f *Framework) initLLM() error {
	if f.opts.querier != nil {
		f.supervisor = f.opts.querier
		f.agents = f.opts.querier
		return nil
	}

	completer, err := llm.NewProvider(f.cfg.LLM.ProviderConfig)
	if err != nil {
		return err
	}

	reqOpts := []llm.CompletionOption{llm.WithTemperature(f.cfg.LLM.Temperature)}
	if f.cfg.LLM.MaxTokens > 0 {
		reqOpts = append(reqOpts, llm.WithMaxTokens(f.cfg.LLM.MaxTokens))
	}

	f.supervisor = llm.NewRetrying(
		llm.NewQuerier(completer, llm.WithTracker(f.tracker, PurposeSupervisor), llm.WithRequestOptions(reqOpts...)),
		f.cfg.LLM.MaxRetries,
	)
	f.agents = llm.NewRetrying(
		llm.NewQuerier(completer, llm.WithTracker(f.tracker, PurposeAgents), llm.WithRequestOptions(reqOpts...)),
		f.cfg.LLM.MaxRetries,
	)
	f.logger.Info("llm backend ready", "provider", completer.Name(), "model", f.cfg.LLM.Model)
	return nil
}

// initMirrors connects the configured attack-graph mirrors.
func (f *Framework) initMirrors() error {
	var mirrors []func(missionID string) state.Sink

	if f.cfg.State.Redis.Enabled {
		redisOpts, err := redis.ParseURL(f.cfg.StateRedisURL())
		if err != nil {
			return fmt.Errorf("%w: state.redis.url: %w", ErrInvalidConfig, err)
		}
		client := redis.NewClient(redisOpts)
		f.closers = append(f.closers, namedCloser{"redis state mirror", client})

		ttl := f.cfg.RedisTTL()
		mirrors = append(mirrors, func(id string) state.Sink {
			return state.NewRedisSink(client, state.RedisKey(id), ttl)
		})
	}

	if f.cfg.State.Etcd.Enabled {
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   f.cfg.State.Etcd.Endpoints,
			DialTimeout: f.cfg.EtcdDialTimeout(),
		})
		if err != nil {
			return fmt.Errorf("failed to create etcd client: %w", err)
		}
		f.closers = append(f.closers, namedCloser{"etcd state mirror", client})

		ns := f.cfg.State.Etcd.Namespace
		mirrors = append(mirrors, func(id string) state.Sink {
			return state.NewEtcdSink(client, state.EtcdKey(ns, id))
		})
	}

	if len(mirrors) == 0 {
		return nil
	}

	extra := f.opts.sinks
	f.opts.sinks = func(id string) []state.Sink {
		var sinks []state.Sink
		for _, m := range mirrors {
			sinks = append(sinks, m(id))
		}
		if extra != nil {
			sinks = append(sinks, extra(id)...)
		}
		return sinks
	}
	return nil
}

// Config returns the framework configuration.
func (f *Framework) Config() *config.Config {
	return f.cfg
}

// Guardrails returns the safety policy shared by every mission.
func (f *Framework) Guardrails() *guardrail.Guardrails {
	return f.guard
}

// Tokens returns the token usage of missions run so far.
func (f *Framework) Tokens() llm.TokenTracker {
	return f.tracker
}

// NewMission prepares a mission rooted at workspace. An empty missionID
// gets a generated one.
func (f *Framework) NewMission(workspace, missionID string) (*Mission, error) {
	const op = "Framework.NewMission"

	if missionID == "" {
		missionID = uuid.NewString()
	}
	logger := f.logger.With("mission_id", missionID)

	stateOpts := []state.Option{state.WithLogger(logger)}
	if f.opts.sinks != nil {
		stateOpts = append(stateOpts, state.WithSinks(f.opts.sinks(missionID)...))
	}
	st, err := state.NewManager(workspace, stateOpts...)
	if err != nil {
		return nil, NewValidationError(op, err)
	}

	reg, err := f.newRegistry(workspace, st, logger)
	if err != nil {
		return nil, NewValidationError(op, err)
	}

	supOpts := []mission.Option{
		mission.WithMissionID(missionID),
		mission.WithMaxTurns(f.cfg.Mission.MaxTurns),
		mission.WithTaskTruncate(f.cfg.Mission.TaskTruncate),
		mission.WithLogger(f.logger),
	}
	if f.opts.tracer != nil {
		supOpts = append(supOpts, mission.WithTracer(f.opts.tracer))
	}
	if f.opts.meter != nil {
		supOpts = append(supOpts, mission.WithMeter(f.opts.meter))
	}
	if f.opts.events != nil {
		supOpts = append(supOpts, mission.WithEvents(f.opts.events))
	}
	if f.opts.debriefer != nil {
		supOpts = append(supOpts, mission.WithDebriefer(f.opts.debriefer))
	}
	if f.cfg.Mission.GuardTargets {
		supOpts = append(supOpts, mission.WithGuardrails(f.guard))
	}

	sup, err := mission.NewSupervisor(f.supervisor, st, reg, supOpts...)
	if err != nil {
		return nil, NewConfigurationError(op, err)
	}

	return &Mission{Supervisor: sup, State: st, Agents: reg, Workspace: workspace}, nil
}

// RunMission runs goal in the configured workspace.
func (f *Framework) RunMission(ctx context.Context, goal string) (*mission.Outcome, error) {
	const op = "Framework.RunMission"

	if err := os.MkdirAll(f.cfg.Workspace, 0o755); err != nil {
		return nil, NewExecutionError(op, fmt.Errorf("failed to create workspace: %w", err))
	}

	m, err := f.NewMission(f.cfg.Workspace, "")
	if err != nil {
		return nil, err
	}

	outcome, err := m.RunMission(ctx, goal)
	if err != nil {
		return nil, classifyMission(op, m.MissionID(), err)
	}
	return outcome, nil
}

// Runner adapts the framework to serve.RunnerFactory: each job gets its
// own mission with the job ID as mission ID.
func (f *Framework) Runner(ctx context.Context, job queue.Job, workspace string) (serve.Runner, error) {
	m, err := f.NewMission(workspace, job.ID)
	if err != nil {
		return nil, err
	}
	return runnerFunc(func(ctx context.Context, goal string) (*mission.Outcome, error) {
		outcome, err := m.RunMission(ctx, goal)
		if err != nil {
			return nil, classifyMission("Framework.Runner", job.ID, err)
		}
		return outcome, nil
	}), nil
}

type runnerFunc func(ctx context.Context, goal string) (*mission.Outcome, error)

func (r runnerFunc) RunMission(ctx context.Context, goal string) (*mission.Outcome, error) {
	return r(ctx, goal)
}

func classifyMission(op, missionID string, err error) error {
	wrapped := classify(op, err)
	if e, ok := wrapped.(*Error); ok {
		return e.WithContext(map[string]any{"mission_id": missionID})
	}
	return wrapped
}

// newRegistry registers the built-in agents followed by the extra ones.
func (f *Framework) newRegistry(workspace string, st agent.Summarizer, logger *slog.Logger) (*agent.Registry, error) {
	executor := exec.NewGuarded(f.guard)
	executor.Timeout = f.cfg.CommandTimeout()
	executor.WorkDir = workspace
	executor.Logger = logger

	reg := agent.NewRegistry()
	reg.MustRegister(
		agent.NewWebAgent(f.agents, executor).WithLogger(logger),
		agent.NewNetAgent(f.agents, executor).WithLogger(logger),
		agent.NewRevAgent(f.agents, executor).WithLogger(logger),
		agent.NewCriticAgent(f.agents),
		agent.NewReporterAgent(workspace, f.agents, st),
	)
	for _, a := range f.opts.agents {
		if err := reg.Register(a); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// AgentNames lists the agents every mission can dispatch to.
func (f *Framework) AgentNames() []string {
	reg, err := f.newRegistry(f.cfg.Workspace, nil, f.logger)
	if err != nil {
		return nil
	}
	return reg.Names()
}

// Agent looks up a built-in or extra agent by name. The agent runs in the
// configured workspace without mission state.
func (f *Framework) Agent(name string) (agent.Agent, error) {
	const op = "Framework.Agent"

	reg, err := f.newRegistry(f.cfg.Workspace, nil, f.logger)
	if err != nil {
		return nil, NewValidationError(op, err)
	}
	a, ok := reg.Get(name)
	if !ok {
		return nil, NewNotFoundError(op, fmt.Errorf("%w: %s", ErrAgentNotFound, name))
	}
	return a, nil
}

// Execute runs a shell command through the guardrails in the configured
// workspace.
func (f *Framework) Execute(ctx context.Context, command string) (*exec.Result, error) {
	executor := exec.NewGuarded(f.guard)
	executor.Timeout = f.cfg.CommandTimeout()
	executor.WorkDir = f.cfg.Workspace
	executor.Logger = f.logger

	res, err := executor.Execute(ctx, command)
	if err != nil {
		return nil, classify("Framework.Execute", err)
	}
	return res, nil
}

// Close releases mirror connections. It is safe to call more than once.
func (f *Framework) Close() error {
	f.closeOnce.Do(func() {
		for _, c := range f.closers {
			CloseWithLog(c.closer, f.logger, c.name)
		}
	})
	return nil
}
