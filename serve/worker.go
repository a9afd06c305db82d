package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/queue"
)

// ServiceName is the health service name reported by the worker.
const ServiceName = "stingbot.MissionWorker"

const (
	defaultPollTimeout = 5 * time.Second
	defaultRetryDelay  = 2 * time.Second
)

// JobSource is the mission queue as seen by a worker.
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Heartbeat(ctx context.Context, workerID string) error
	WorkerStarted(ctx context.Context) error
	WorkerStopped(ctx context.Context) error
}

// Runner runs one mission.
type Runner interface {
	RunMission(ctx context.Context, goal string) (*mission.Outcome, error)
}

// RunnerFactory builds the runner for job, rooted at workspace. It is
// called once per job.
type RunnerFactory func(ctx context.Context, job queue.Job, workspace string) (Runner, error)

// HealthReporter receives serving status changes. *health.Server
// implements it.
type HealthReporter interface {
	SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithHealth reports worker state to h.
func WithHealth(h HealthReporter) WorkerOption {
	return func(w *Worker) {
		w.health = h
	}
}

// WithWorkerID overrides the generated worker ID.
func WithWorkerID(id string) WorkerOption {
	return func(w *Worker) {
		if id != "" {
			w.id = id
		}
	}
}

// WithPollTimeout sets how long each queue poll blocks.
func WithPollTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollTimeout = d
		}
	}
}

// WithRetryDelay sets the pause after a failed queue poll.
func WithRetryDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.retryDelay = d
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker claims queued missions and runs them one at a time.
type Worker struct {
	source  JobSource
	factory RunnerFactory
	root    string

	id          string
	health      HealthReporter
	pollTimeout time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates a worker storing mission workspaces under root.
func NewWorker(source JobSource, factory RunnerFactory, root string, opts ...WorkerOption) *Worker {
	w := &Worker{
		source:      source,
		factory:     factory,
		root:        root,
		id:          uuid.NewString(),
		pollTimeout: defaultPollTimeout,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("worker_id", w.id)
	return w
}

// ID returns the worker ID.
func (w *Worker) ID() string {
	return w.id
}

// Processed returns the number of missions that finished without an
// infrastructure error.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// Failed returns the number of missions that ended with an error.
func (w *Worker) Failed() int64 {
	return w.failed.Load()
}

// Workspace returns the workspace directory for a job.
func (w *Worker) Workspace(jobID string) string {
	return filepath.Join(w.root, "missions", jobID)
}

// Run polls the queue until ctx is done. Mission failures are logged and
// do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.setServing(true)
	defer w.setServing(false)

	if err := w.source.WorkerStarted(ctx); err != nil {
		w.logger.Warn("failed to register worker", "error", err)
	}
	defer func() {
		if err := w.source.WorkerStopped(context.Background()); err != nil {
			w.logger.Warn("failed to deregister worker", "error", err)
		}
	}()

	w.logger.Info("mission worker started", "root", w.root)

	for {
		if ctx.Err() != nil {
			w.logger.Info("mission worker stopped", "processed", w.Processed(), "failed", w.Failed())
			return nil
		}

		if err := w.source.Heartbeat(ctx, w.id); err != nil && ctx.Err() == nil {
			w.logger.Warn("heartbeat failed", "error", err)
		}

		job, err := w.source.Pop(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to poll mission queue", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}
		if job == nil {
			continue
		}

		if err := w.runJob(ctx, *job); err != nil {
			w.failed.Add(1)
			w.logger.Error("mission failed", "job_id", job.ID, "error", err)
			continue
		}
		w.processed.Add(1)
	}
}

func (w *Worker) runJob(ctx context.Context, job queue.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("rejecting job: %w", err)
	}

	workspace := w.Workspace(job.ID)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", workspace, err)
	}

	runner, err := w.factory(ctx, job, workspace)
	if err != nil {
		return fmt.Errorf("failed to prepare mission %s: %w", job.ID, err)
	}

	logger := w.logger.With("job_id", job.ID)
	logger.Info("mission claimed", "goal", job.Goal, "queued_for", time.Since(job.Submitted()))

	outcome, err := runner.RunMission(ctx, job.Goal)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Warn("mission interrupted by shutdown")
		}
		return err
	}

	logger.Info("mission finished",
		"status", outcome.Status,
		"turns", outcome.Turns,
		"duration", outcome.Duration,
		"message", outcome.Message,
	)
	return nil
}

func (w *Worker) setServing(serving bool) {
	if w.health == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	w.health.SetServingStatus(ServiceName, status)
}
