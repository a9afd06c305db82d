package llm

import (
	"sort"
	"sync"
)

// TokenTracker accumulates token usage per purpose ("supervisor", "net", ...).
type TokenTracker interface {
	Add(purpose string, usage TokenUsage)
	Total() TokenUsage
	For(purpose string) TokenUsage
	Purposes() []string
	Reset()
}

// DefaultTokenTracker is a thread-safe implementation of TokenTracker.
type DefaultTokenTracker struct {
	mu       sync.RWMutex
	purposes map[string]TokenUsage
	total    TokenUsage
}

// NewTokenTracker creates a new DefaultTokenTracker.
func NewTokenTracker() *DefaultTokenTracker {
	return &DefaultTokenTracker{
		purposes: make(map[string]TokenUsage),
	}
}

// Add records token usage for a purpose.
func (t *DefaultTokenTracker) Add(purpose string, usage TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.purposes[purpose] = t.purposes[purpose].Add(usage)
	t.total = t.total.Add(usage)
}

// Total returns the aggregate usage.
func (t *DefaultTokenTracker) Total() TokenUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// For returns the usage recorded for purpose, or zero.
func (t *DefaultTokenTracker) For(purpose string) TokenUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.purposes[purpose]
}

// Purposes returns the tracked purposes in sorted order.
func (t *DefaultTokenTracker) Purposes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.purposes))
	for p := range t.purposes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reset clears all tracked usage.
func (t *DefaultTokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.purposes = make(map[string]TokenUsage)
	t.total = TokenUsage{}
}
