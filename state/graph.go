package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType classifies a node in the attack graph.
// The set is open; agents may record their own types.
type NodeType string

const (
	NodeAsset      NodeType = "asset"
	NodeVuln       NodeType = "vuln"
	NodeCredential NodeType = "credential"
	NodeFinding    NodeType = "finding"
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	return string(t)
}

// Mission lifecycle values stored in Metadata.Status.
const (
	StatusActive    = "active"
	StatusComplete  = "complete"
	StatusExhausted = "exhausted"
	StatusCancelled = "cancelled"
)

// Node is a discovered entity: a host, a vulnerability, a credential.
type Node struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Edge records an action taken from Source towards Target.
// Endpoints need not exist as nodes; agent and task labels are free text.
type Edge struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// String renders the edge as "<source> -> <target> via <action> (<result>)".
func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s via %s (%s)", e.Source, e.Target, e.Action, e.Result)
}

// Metadata describes the mission the graph belongs to.
type Metadata struct {
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}

// Graph is the persisted attack graph. Nodes and edges keep insertion order.
type Graph struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Metadata Metadata `json:"metadata"`
}

// Snapshot is the full persisted document.
type Snapshot struct {
	Graph  Graph          `json:"graph"`
	Memory map[string]any `json:"memory"`
}

// Summary is the compact projection of the state embedded in decision prompts.
type Summary struct {
	DiscoveredAssets []string       `json:"discovered_assets"`
	ActionsTaken     []string       `json:"actions_taken"`
	ActiveVariables  map[string]any `json:"active_variables"`
}

// String renders the summary as indented JSON. Map keys are sorted by the
// encoder, so equal summaries always render identically.
func (s Summary) String() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", s)
	}
	return string(data)
}

func summarize(g *Graph, memory map[string]any) Summary {
	s := Summary{
		DiscoveredAssets: make([]string, 0, len(g.Nodes)),
		ActionsTaken:     make([]string, 0, len(g.Edges)),
		ActiveVariables:  make(map[string]any, len(memory)),
	}
	for _, n := range g.Nodes {
		s.DiscoveredAssets = append(s.DiscoveredAssets, fmt.Sprintf("%s (%s)", n.ID, n.Type))
	}
	for _, e := range g.Edges {
		s.ActionsTaken = append(s.ActionsTaken, e.String())
	}
	for k, v := range memory {
		s.ActiveVariables[k] = v
	}
	return s
}
