package llm

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
)

// Retrying retries failed queries with exponential backoff.
type Retrying struct {
	next     Querier
	maxTries uint
	newBO    func() backoff.BackOff
}

// NewRetrying wraps q so that each query is attempted up to maxTries times.
// A maxTries below 1 means a single attempt.
func NewRetrying(q Querier, maxTries uint) *Retrying {
	if maxTries < 1 {
		maxTries = 1
	}
	return &Retrying{
		next:     q,
		maxTries: maxTries,
		newBO: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Query forwards to the wrapped Querier. Context errors and empty responses
// are not retried.
func (r *Retrying) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	op := func() (string, error) {
		out, err := r.next.Query(ctx, prompt, systemPrompt)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(r.newBO()),
		backoff.WithMaxTries(r.maxTries),
	)
}
