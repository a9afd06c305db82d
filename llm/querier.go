package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a backend produces no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Querier answers a prompt under an optional system prompt.
// Implementations may fail; callers decide whether a failure is fatal.
type Querier interface {
	Query(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, prompt, systemPrompt string) (string, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return f(ctx, prompt, systemPrompt)
}

// QuerierOption configures a ChatQuerier.
type QuerierOption func(*ChatQuerier)

// WithTracker attributes token usage of every query to purpose.
func WithTracker(tracker TokenTracker, purpose string) QuerierOption {
	return func(q *ChatQuerier) {
		q.tracker = tracker
		q.purpose = purpose
	}
}

// WithRequestOptions applies opts to every completion request.
func WithRequestOptions(opts ...CompletionOption) QuerierOption {
	return func(q *ChatQuerier) {
		q.reqOpts = append(q.reqOpts, opts...)
	}
}

// ChatQuerier turns a prompt pair into a two-message chat completion.
type ChatQuerier struct {
	completer Completer
	tracker   TokenTracker
	purpose   string
	reqOpts   []CompletionOption
}

// NewQuerier wraps a Completer.
func NewQuerier(c Completer, opts ...QuerierOption) *ChatQuerier {
	q := &ChatQuerier{completer: c}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Query sends the system prompt (when non-empty) followed by the prompt.
func (q *ChatQuerier) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, NewSystemMessage(systemPrompt))
	}
	messages = append(messages, NewUserMessage(prompt))

	resp, err := q.completer.Complete(ctx, NewCompletionRequest(messages, q.reqOpts...))
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	if q.tracker != nil {
		q.tracker.Add(q.purpose, resp.Usage)
	}
	if resp.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}
