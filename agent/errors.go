package agent

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes carried by ResultError.
const (
	ErrCodeExecutionFailed = "EXECUTION_FAILED"
	ErrCodeAgentPanic      = "AGENT_PANIC"
	ErrCodeBlocked         = "BLOCKED"
	ErrCodeLLMFailed       = "LLM_FAILED"
	ErrCodeUnknown         = "UNKNOWN"
)

// ResultError is a structured agent failure. It serializes to JSON so it
// can be stored alongside the mission record.
type ResultError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
	Component string         `json:"component,omitempty"`
	Stack     string         `json:"stack,omitempty"`
}

// Error formats the error as "component [code]: message: cause".
func (e *ResultError) Error() string {
	var parts []string
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("%s [%s]", e.Component, e.Code))
	} else {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *ResultError) Unwrap() error {
	return e.Cause
}

// NewResultError creates a ResultError with the given code and message.
func NewResultError(code, message string) *ResultError {
	return &ResultError{Code: code, Message: message}
}

// Wrap creates a ResultError caused by err.
func Wrap(err error, code, message string) *ResultError {
	return &ResultError{Code: code, Message: message, Cause: err}
}

// FromError converts any error to a ResultError. Nil stays nil; a
// ResultError anywhere in the chain is returned as-is.
func FromError(err error) *ResultError {
	if err == nil {
		return nil
	}
	var re *ResultError
	if errors.As(err, &re) {
		return re
	}
	return &ResultError{Code: ErrCodeUnknown, Message: err.Error()}
}

// WithDetails adds context to the error.
func (e *ResultError) WithDetails(details map[string]any) *ResultError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithComponent sets the agent that produced the error.
func (e *ResultError) WithComponent(component string) *ResultError {
	e.Component = component
	return e
}

// WithStack captures the current stack trace.
func (e *ResultError) WithStack() *ResultError {
	e.Stack = captureStack(3)
	return e
}

func captureStack(skip int) string {
	var buf strings.Builder
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.String()
}
