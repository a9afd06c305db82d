package queue

import (
	"fmt"
	"strings"
	"time"
)

// Default key names.
const (
	DefaultQueue   = "stingbot:missions:queue"
	DefaultChannel = "stingbot:missions:events"
	DefaultHistory = "stingbot:missions:history"

	activeWorkersKey = "stingbot:workers:active"
	heartbeatTTL     = 30 * time.Second
)

// Job is a mission waiting to be run.
type Job struct {
	ID   string `json:"id"`
	Goal string `json:"goal"`

	// SubmittedAt is the Unix timestamp in milliseconds.
	SubmittedAt int64 `json:"submitted_at"`
}

// Validate checks that the job can be run.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if strings.TrimSpace(j.Goal) == "" {
		return fmt.Errorf("job %s: goal is required", j.ID)
	}
	if j.SubmittedAt < 0 {
		return fmt.Errorf("job %s: submitted_at must be non-negative", j.ID)
	}
	return nil
}

// Submitted returns SubmittedAt as a time.
func (j *Job) Submitted() time.Time {
	return time.UnixMilli(j.SubmittedAt)
}

func heartbeatKey(workerID string) string {
	return fmt.Sprintf("stingbot:worker:%s:health", workerID)
}
