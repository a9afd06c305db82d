package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/stingbot/mission"
)

// DefaultJournalLimit caps the history list.
const DefaultJournalLimit = 100

// Journal keeps the most recent mission records. It implements
// mission.Debriefer.
type Journal struct {
	client redis.Cmdable
	key    string
	limit  int64
}

// NewJournal creates a journal on key holding at most limit records.
func NewJournal(client redis.Cmdable, key string, limit int64) *Journal {
	if key == "" {
		key = DefaultHistory
	}
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	return &Journal{client: client, key: key, limit: limit}
}

// Debrief stores record as the newest entry and trims the oldest.
func (j *Journal) Debrief(ctx context.Context, record mission.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal mission record: %w", err)
	}

	_, err = j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, j.key, data)
		pipe.LTrim(ctx, j.key, 0, j.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to journal mission %s: %w", record.MissionID, err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (j *Journal) Recent(ctx context.Context, n int64) ([]mission.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := j.client.LRange(ctx, j.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	records := make([]mission.Record, 0, len(items))
	for _, item := range items {
		var r mission.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}
