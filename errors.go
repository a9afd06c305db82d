package stingbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zero-day-ai/stingbot/exec"
	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/state"
)

// Sentinel errors for use with errors.Is. Several re-export the sentinel of
// the package that produces them so callers only need this package.
var (
	// ErrAgentNotFound indicates the requested agent is not registered.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidConfig indicates the configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPersistence indicates the attack graph could not be written.
	ErrPersistence = state.ErrPersist

	// ErrDecisionFailed wraps a failed supervisor decision query. The
	// supervisor records these in mission memory instead of returning them.
	ErrDecisionFailed = mission.ErrNoDecision

	// ErrCommandBlocked indicates the guardrails refused a command.
	ErrCommandBlocked = exec.ErrBlocked
)

// Error kinds.
const (
	KindNotFound      = "not_found"
	KindValidation    = "validation"
	KindExecution     = "execution"
	KindConfiguration = "configuration"
	KindPermission    = "permission"
	KindCancelled     = "cancelled"
	KindInternal      = "internal"
)

// Error adds the failing operation and an error category to an underlying
// error.
//
//	err := &Error{
//		Op:   "Framework.RunMission",
//		Kind: KindExecution,
//		Err:  ErrPersistence,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Framework.RunMission").
	Op string

	// Kind categorizes the error (e.g., KindNotFound).
	Kind string

	Err error

	// Context holds optional debugging values such as mission IDs.
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("stingbot: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("stingbot: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("stingbot: %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind (and Op, when the target
// sets one), then falls back to the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok && t.Kind != "" && e.Kind == t.Kind {
		if t.Op == "" || e.Op == t.Op {
			return true
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into its context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewNotFoundError creates an Error with KindNotFound.
func NewNotFoundError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: err}
}

// NewValidationError creates an Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewExecutionError creates an Error with KindExecution.
func NewExecutionError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindExecution, Err: err}
}

// NewConfigurationError creates an Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// classify wraps an error escaping a framework operation.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := KindInternal
	switch {
	case errors.Is(err, ErrCommandBlocked):
		kind = KindPermission
	case errors.Is(err, mission.ErrEmptyGoal):
		kind = KindValidation
	case errors.Is(err, ErrPersistence):
		kind = KindExecution
	case errors.Is(err, ErrInvalidConfig):
		kind = KindConfiguration
	case errors.Is(err, ErrAgentNotFound):
		kind = KindNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCancelled
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// CloseWithLog closes closer and logs a failure at warn level. Meant for
// defer statements.
//
//	defer stingbot.CloseWithLog(client, logger, "redis client")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
