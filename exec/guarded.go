package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zero-day-ai/stingbot/guardrail"
)

// DefaultTimeout bounds a single guarded command.
const DefaultTimeout = 300 * time.Second

// ErrBlocked is matched by every *BlockedError.
var ErrBlocked = errors.New("command blocked by guardrails")

// BlockedError reports a command rejected by the policy. It is never
// returned for a command that actually ran.
type BlockedError struct {
	Command string
	Reason  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("command blocked: %s", e.Reason)
}

// Unwrap returns ErrBlocked.
func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// Policy decides whether an action may proceed. *guardrail.Guardrails
// satisfies it.
type Policy interface {
	FilterAction(action guardrail.ActionType, payload string) guardrail.Verdict
}

// Guarded runs shell commands only after the policy approves them.
type Guarded struct {
	Policy  Policy
	Timeout time.Duration
	WorkDir string
	Shell   string
	Logger  *slog.Logger
}

// NewGuarded creates an executor with the default timeout and /bin/sh.
func NewGuarded(policy Policy) *Guarded {
	return &Guarded{
		Policy:  policy,
		Timeout: DefaultTimeout,
		Shell:   "sh",
	}
}

// Execute filters command as a terminal action and runs it with "sh -c".
func (g *Guarded) Execute(ctx context.Context, command string) (*Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("command is required")
	}

	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if g.Policy == nil {
		return nil, &BlockedError{Command: command, Reason: "no guardrail policy configured"}
	}
	if v := g.Policy.FilterAction(guardrail.ActionTerminal, command); !v.Safe {
		logger.Warn("command blocked", "command", command, "reason", v.Reason)
		return nil, &BlockedError{Command: command, Reason: v.Reason}
	}

	shell := g.Shell
	if shell == "" {
		shell = "sh"
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger.Debug("executing command", "command", command, "timeout", timeout)
	return Run(ctx, Config{
		Command: shell,
		Args:    []string{"-c", command},
		WorkDir: g.WorkDir,
		Timeout: timeout,
	})
}
