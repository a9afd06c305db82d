package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned once every scripted reply has been used.
var ErrScriptExhausted = errors.New("llm: script exhausted")

// Call is one recorded query.
type Call struct {
	Prompt       string
	SystemPrompt string
}

// Scripted replays a fixed sequence of replies, in order, and records
// every query it receives.
type Scripted struct {
	mu      sync.Mutex
	replies []string
	next    int
	calls   []Call
}

// NewScripted creates a querier replaying replies.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// Query returns the next reply.
func (s *Scripted) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, SystemPrompt: systemPrompt})
	if s.next >= len(s.replies) {
		return "", ErrScriptExhausted
	}
	reply := s.replies[s.next]
	s.next++
	return reply, nil
}

// Calls returns the queries received so far.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Remaining reports how many replies are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies) - s.next
}
