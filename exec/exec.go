// Package exec runs shell commands for agents.
//
// Run is the low-level primitive: a context-aware os/exec wrapper with a
// timeout and captured output. Guarded is the execution boundary used by
// agents; it consults a guardrail policy before anything reaches a shell.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Config describes one process invocation.
type Config struct {
	Command string // required

	Args []string

	WorkDir string

	// Env in "KEY=value" form. Nil inherits the parent environment.
	Env []string

	// Timeout is the maximum execution duration. Zero means no limit
	// beyond the parent context.
	Timeout time.Duration

	// Stdin is fed to the process when non-empty.
	Stdin []byte
}

// Result is what a finished process left behind.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr, trimmed.
func (r *Result) Output() string {
	var b strings.Builder
	b.Write(bytes.TrimSpace(r.Stdout))
	if errOut := bytes.TrimSpace(r.Stderr); len(errOut) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.Write(errOut)
	}
	return b.String()
}

// Run starts cfg.Command and waits for it.
//
// A non-zero exit status is reported in Result.ExitCode, not as an error.
// Errors mean the process could not run to completion; any output captured
// before that is still returned.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(cfg.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(cfg.Stdin)
	}

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return res, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%s: timed out after %v", cfg.Command, cfg.Timeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return res, fmt.Errorf("%s: %w", cfg.Command, context.Canceled)
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("%s: failed to run: %w", cfg.Command, runErr)
}
