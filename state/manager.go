package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Well-known scratch memory keys.
const (
	KeyMissionGoal = "mission_goal"
	KeyInitialPlan = "initial_plan"
	KeyErrors      = "errors"
)

// Option configures a Manager.
type Option func(*Manager)

// WithSinks adds sinks that receive every snapshot after the workspace file.
func WithSinks(sinks ...Sink) Option {
	return func(m *Manager) {
		m.sinks = append(m.sinks, sinks...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns one mission's attack graph and scratch memory.
//
// Mutations are write-through: AddNode (when it inserts), AddEdge,
// UpdateMemory, AppendError and SetStatus serialize the full snapshot to
// every sink before returning. A persistence failure leaves the in-memory
// mutation applied and is returned wrapped in ErrPersist.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	graph  Graph
	memory map[string]any
	index  map[string]int

	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates an empty graph persisted to <workspace>/logs/attack_graph.json.
// Nothing is written until the first mutation.
func NewManager(workspace string, opts ...Option) (*Manager, error) {
	if workspace == "" {
		return nil, fmt.Errorf("state: workspace is required")
	}

	m := &Manager{
		memory: make(map[string]any),
		index:  make(map[string]int),
		sinks:  []Sink{NewFileSink(GraphPath(workspace))},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.graph = Graph{
		Nodes: []Node{},
		Edges: []Edge{},
		Metadata: Metadata{
			StartTime: m.now(),
			Status:    StatusActive,
		},
	}
	return m, nil
}

// AddNode inserts a node unless one with the same id exists. It reports
// whether the node was inserted; a duplicate is neither mutated nor persisted.
func (m *Manager) AddNode(ctx context.Context, id string, typ NodeType, data map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[id]; exists {
		return false, nil
	}
	if data == nil {
		data = map[string]any{}
	}

	m.index[id] = len(m.graph.Nodes)
	m.graph.Nodes = append(m.graph.Nodes, Node{
		ID:        id,
		Type:      typ,
		Data:      data,
		CreatedAt: m.now(),
	})
	return true, m.persistLocked(ctx)
}

// AddEdge appends an edge. An empty result is recorded as "unknown".
func (m *Manager) AddEdge(ctx context.Context, source, target, action, result string) error {
	if result == "" {
		result = "unknown"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph.Edges = append(m.graph.Edges, Edge{
		Source:    source,
		Target:    target,
		Action:    action,
		Result:    result,
		CreatedAt: m.now(),
	})
	return m.persistLocked(ctx)
}

// UpdateMemory upserts a scratch memory value.
func (m *Manager) UpdateMemory(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memory[key] = value
	return m.persistLocked(ctx)
}

// GetMemory returns the value stored under key, or def when absent.
func (m *Manager) GetMemory(key string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.memory[key]; ok {
		return v
	}
	return def
}

// AppendError adds msg to the accumulated error list under KeyErrors.
func (m *Manager) AppendError(ctx context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memory[KeyErrors] = append(errorList(m.memory[KeyErrors]), msg)
	return m.persistLocked(ctx)
}

// Errors returns a copy of the accumulated error list.
func (m *Manager) Errors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := errorList(m.memory[KeyErrors])
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// SetStatus records the mission lifecycle status in the graph metadata.
func (m *Manager) SetStatus(ctx context.Context, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph.Metadata.Status = status
	return m.persistLocked(ctx)
}

// ExportSummary renders the compact projection used in decision prompts.
// Without intervening mutations repeated calls return equal summaries.
func (m *Manager) ExportSummary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return summarize(&m.graph, m.memory)
}

// Snapshot returns a copy of the current graph and memory.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := Graph{
		Nodes:    make([]Node, len(m.graph.Nodes)),
		Edges:    make([]Edge, len(m.graph.Edges)),
		Metadata: m.graph.Metadata,
	}
	copy(g.Nodes, m.graph.Nodes)
	copy(g.Edges, m.graph.Edges)

	memory := make(map[string]any, len(m.memory))
	for k, v := range m.memory {
		memory[k] = v
	}
	return Snapshot{Graph: g, Memory: memory}
}

func (m *Manager) persistLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(Snapshot{Graph: m.graph, Memory: m.memory}, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}

	for _, sink := range m.sinks {
		if err := sink.Save(ctx, data); err != nil {
			m.logger.Error("failed to persist attack graph", "error", err)
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return nil
}

// errorList normalizes the errors entry, which is []any after a JSON round trip.
func errorList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
