package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	resp *CompletionResponse
	err  error
	reqs []*CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestChatQuerier_Query(t *testing.T) {
	fc := &fakeCompleter{resp: &CompletionResponse{
		Content: "AGENT: net\nTASK: scan",
		Usage:   TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}}
	tracker := NewTokenTracker()
	q := NewQuerier(fc, WithTracker(tracker, "supervisor"), WithRequestOptions(WithTemperature(0.2)))

	out, err := q.Query(context.Background(), "next step?", "You are the supervisor.")
	require.NoError(t, err)
	assert.Equal(t, "AGENT: net\nTASK: scan", out)

	require.Len(t, fc.reqs, 1)
	req := fc.reqs[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, NewSystemMessage("You are the supervisor."), req.Messages[0])
	assert.Equal(t, NewUserMessage("next step?"), req.Messages[1])
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.2, *req.Temperature)

	assert.Equal(t, 15, tracker.For("supervisor").TotalTokens)
}

func TestChatQuerier_NoSystemPrompt(t *testing.T) {
	fc := &fakeCompleter{resp: &CompletionResponse{Content: "ok"}}
	_, err := NewQuerier(fc).Query(context.Background(), "hello", "")
	require.NoError(t, err)
	require.Len(t, fc.reqs[0].Messages, 1)
	assert.Equal(t, RoleUser, fc.reqs[0].Messages[0].Role)
}

func TestChatQuerier_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewQuerier(&fakeCompleter{err: boom}).Query(context.Background(), "p", "s")
	assert.ErrorIs(t, err, boom)

	_, err = NewQuerier(&fakeCompleter{resp: &CompletionResponse{}}).Query(context.Background(), "p", "s")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestQuerierFunc(t *testing.T) {
	q := QuerierFunc(func(_ context.Context, prompt, system string) (string, error) {
		return system + ":" + prompt, nil
	})
	out, err := q.Query(context.Background(), "p", "s")
	require.NoError(t, err)
	assert.Equal(t, "s:p", out)
}

func TestMessage_IsValid(t *testing.T) {
	assert.True(t, NewUserMessage("hi").IsValid())
	assert.False(t, NewUserMessage("").IsValid())
	assert.False(t, Message{Role: "tool", Content: "x"}.IsValid())
}
