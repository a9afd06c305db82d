package stingbot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/stingbot/exec"
	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/state"
)

type mockCloser struct {
	closeErr   error
	closeCalls int
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	return m.closeErr
}

func TestErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  &Error{Op: "Framework.RunMission", Kind: KindInternal},
			want: "stingbot: Framework.RunMission: internal",
		},
		{
			name: "with cause",
			err:  &Error{Op: "Framework.Agent", Kind: KindNotFound, Err: ErrAgentNotFound},
			want: "stingbot: Framework.Agent (not_found): agent not found",
		},
		{
			name: "with context",
			err: &Error{Op: "Framework.RunMission", Kind: KindExecution, Err: ErrPersistence,
				Context: map[string]any{"mission_id": "m-1"}},
			want: "stingbot: Framework.RunMission (execution): state: persist failed [context: map[mission_id:m-1]]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := NewExecutionError("Framework.RunMission", fmt.Errorf("save: %w", ErrPersistence))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, state.ErrPersist)
	assert.ErrorIs(t, err, &Error{Kind: KindExecution})
	assert.ErrorIs(t, err, &Error{Op: "Framework.RunMission", Kind: KindExecution})
	assert.NotErrorIs(t, err, &Error{Op: "Framework.Execute", Kind: KindExecution})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotFound})
	assert.False(t, err.Is(nil))

	var target *Error
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &target)
	assert.Equal(t, KindExecution, target.Kind)
}

func TestErrorWithContext(t *testing.T) {
	base := &Error{Op: "op", Kind: KindInternal, Context: map[string]any{"a": 1}}
	derived := base.WithContext(map[string]any{"b": 2})

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, derived.Context)
	assert.Equal(t, map[string]any{"a": 1}, base.Context, "original is not modified")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"blocked command", &exec.BlockedError{Command: "mkfs", Reason: "no"}, KindPermission},
		{"empty goal", mission.ErrEmptyGoal, KindValidation},
		{"persistence", fmt.Errorf("%w: disk full", state.ErrPersist), KindExecution},
		{"cancelled", fmt.Errorf("mission m cancelled: %w", context.Canceled), KindCancelled},
		{"deadline", context.DeadlineExceeded, KindCancelled},
		{"config", ErrInvalidConfig, KindConfiguration},
		{"other", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify("op", nil))

	already := NewNotFoundError("inner", ErrAgentNotFound)
	assert.Same(t, already, classify("outer", already))
}

func TestCloseWithLog(t *testing.T) {
	t.Run("nil closer", func(t *testing.T) {
		var logBuf bytes.Buffer
		CloseWithLog(nil, slog.New(slog.NewTextHandler(&logBuf, nil)), "nothing")
		assert.Empty(t, logBuf.String())
	})

	t.Run("successful close", func(t *testing.T) {
		closer := &mockCloser{}
		var logBuf bytes.Buffer
		CloseWithLog(closer, slog.New(slog.NewTextHandler(&logBuf, nil)), "redis client")

		assert.Equal(t, 1, closer.closeCalls)
		assert.Empty(t, logBuf.String())
	})

	t.Run("close error", func(t *testing.T) {
		closer := &mockCloser{closeErr: errors.New("connection reset")}
		var logBuf bytes.Buffer
		CloseWithLog(closer, slog.New(slog.NewTextHandler(&logBuf, nil)), "etcd client")

		out := logBuf.String()
		assert.Contains(t, out, "failed to close resource")
		assert.Contains(t, out, "etcd client")
		assert.Contains(t, out, "connection reset")
		assert.Contains(t, out, "level=WARN")
	})
}
