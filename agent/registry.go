package agent

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("agent: already registered")

	// ErrFrozen is returned when registering while a mission is running.
	ErrFrozen = errors.New("agent: registry is frozen")

	// ErrInvalidAgent is returned for a nil agent or an empty name.
	ErrInvalidAgent = errors.New("agent: invalid agent")
)

// Registry maps short names to agents. Names are listed in registration
// order so that prompts built from the registry are deterministic.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds a under a.Name().
func (r *Registry) Register(a Agent) error {
	if a == nil || a.Name() == "" {
		return ErrInvalidAgent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %q", ErrFrozen, a.Name())
	}
	if _, exists := r.agents[a.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, a.Name())
	}
	r.agents[a.Name()] = a
	r.order = append(r.order, a.Name())
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(agents ...Agent) {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Freeze rejects further registrations until Unfreeze.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Unfreeze allows registration again.
func (r *Registry) Unfreeze() {
	r.mu.Lock()
	r.frozen = false
	r.mu.Unlock()
}

// Frozen reports whether the registry is frozen.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
