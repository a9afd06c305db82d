package agent

import (
	"context"
	"fmt"
	"strings"
)

// Agent executes delegated tasks.
type Agent interface {
	// Name is the short registry key, for example "net".
	Name() string

	// Execute performs task. Implementations should honour ctx cancellation.
	Execute(ctx context.Context, task string) (Result, error)
}

// Describer is implemented by agents that can explain themselves in the
// supervisor's agent listing.
type Describer interface {
	Description() string
}

// ResultStatus indicates the outcome of task execution.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"

	// StatusPartial means some objectives were achieved but not all.
	StatusPartial ResultStatus = "partial"
)

// String returns the string representation of the result status.
func (s ResultStatus) String() string {
	return string(s)
}

// IsSuccessful reports whether the status is success or partial.
func (s ResultStatus) IsSuccessful() bool {
	return s == StatusSuccess || s == StatusPartial
}

// Result is what an agent hands back to the supervisor.
type Result struct {
	Status  ResultStatus
	Summary string

	// Fields carries agent-specific output such as "analysis" or "report_path".
	Fields map[string]any
}

// SummaryOr returns the summary, or def when it is empty.
func (r Result) SummaryOr(def string) string {
	if strings.TrimSpace(r.Summary) == "" {
		return def
	}
	return r.Summary
}

// Field returns a named output field.
func (r Result) Field(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Success builds a successful result.
func Success(summary string, fields map[string]any) Result {
	return Result{Status: StatusSuccess, Summary: summary, Fields: fields}
}

// Failed builds a failed result.
func Failed(summary string) Result {
	return Result{Status: StatusFailed, Summary: summary}
}

type funcAgent struct {
	name string
	fn   func(ctx context.Context, task string) (Result, error)
}

// Func adapts a function to Agent.
func Func(name string, fn func(ctx context.Context, task string) (Result, error)) Agent {
	return &funcAgent{name: name, fn: fn}
}

func (f *funcAgent) Name() string { return f.name }

func (f *funcAgent) Execute(ctx context.Context, task string) (Result, error) {
	return f.fn(ctx, task)
}

// SafeExecute calls a.Execute and converts a panic into an AGENT_PANIC error.
func SafeExecute(ctx context.Context, a Agent, task string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = NewResultError(ErrCodeAgentPanic, fmt.Sprintf("panic: %v", r)).
				WithComponent(a.Name()).
				WithStack()
		}
	}()
	return a.Execute(ctx, task)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
