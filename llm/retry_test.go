package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrying(q Querier, maxTries uint) *Retrying {
	r := NewRetrying(q, maxTries)
	r.newBO = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func TestRetrying_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	q := QuerierFunc(func(context.Context, string, string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "AGENT: web", nil
	})

	out, err := fastRetrying(q, 5).Query(context.Background(), "p", "s")
	require.NoError(t, err)
	assert.Equal(t, "AGENT: web", out)
	assert.Equal(t, 3, attempts)
}

func TestRetrying_GivesUp(t *testing.T) {
	attempts := 0
	boom := errors.New("503 service unavailable")
	q := QuerierFunc(func(context.Context, string, string) (string, error) {
		attempts++
		return "", boom
	})

	_, err := fastRetrying(q, 3).Query(context.Background(), "p", "s")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestRetrying_PermanentErrors(t *testing.T) {
	attempts := 0
	q := QuerierFunc(func(context.Context, string, string) (string, error) {
		attempts++
		return "", ErrEmptyResponse
	})

	_, err := fastRetrying(q, 5).Query(context.Background(), "p", "s")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 1, attempts)
}

func TestNewRetrying_MinimumOneTry(t *testing.T) {
	assert.Equal(t, uint(1), NewRetrying(NewScripted(), 0).maxTries)
}
