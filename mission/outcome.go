package mission

import (
	"context"
	"time"
)

// Status is the terminal state of a mission.
type Status string

const (
	// StatusComplete means the LLM signalled the goal was met.
	StatusComplete Status = "complete"

	// StatusExhausted means the turn budget ran out first.
	StatusExhausted Status = "exhausted"
)

// CompletionBanner prefixes every mission message.
const CompletionBanner = "[MISSION COMPLETE]"

// DefaultCompletionMessage is reported when there is nothing else to say,
// including every exhausted mission.
const DefaultCompletionMessage = CompletionBanner + " Report generated in logs."

// Outcome is the result of RunMission.
type Outcome struct {
	MissionID string        `json:"mission_id"`
	Status    Status        `json:"status"`
	Turns     int           `json:"turns"`
	Message   string        `json:"message"`
	Agents    []string      `json:"agents"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Event types published while a mission runs.
const (
	EventStarted      = "mission.started"
	EventTurn         = "mission.turn"
	EventDispatched   = "mission.dispatched"
	EventUnknownAgent = "mission.unknown_agent"
	EventFinished     = "mission.finished"
)

// Event is a progress notification.
type Event struct {
	Type      string    `json:"type"`
	MissionID string    `json:"mission_id"`
	Turn      int       `json:"turn,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Task      string    `json:"task,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher receives mission events. Failures are logged and ignored.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Record summarizes a finished mission for post-mission analysis.
type Record struct {
	MissionID string        `json:"mission_id"`
	Goal      string        `json:"goal"`
	Turns     int           `json:"turns"`
	Agents    []string      `json:"agents"`
	Outcome   Status        `json:"outcome"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
	EndedAt   time.Time     `json:"ended_at"`
}

// Debriefer analyses finished missions. Its errors and panics never change
// the mission outcome.
type Debriefer interface {
	Debrief(ctx context.Context, record Record) error
}

// DebrieferFunc adapts a function to Debriefer.
type DebrieferFunc func(ctx context.Context, record Record) error

// Debrief calls f.
func (f DebrieferFunc) Debrief(ctx context.Context, record Record) error {
	return f(ctx, record)
}
