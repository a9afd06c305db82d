package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/stingbot/mission"
)

// setupTestClient creates a miniredis instance and returns a connected RedisClient.
func setupTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, mr
}

func TestNewRedisClient(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(RedisOptions{
			URL: fmt.Sprintf("redis://%s", mr.Addr()),
		})
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, DefaultQueue, client.queue)
		assert.Equal(t, DefaultChannel, client.channel)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisClient(RedisOptions{URL: "not-a-url://"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedisClient(RedisOptions{
			URL:            fmt.Sprintf("redis://%s", addr),
			ConnectTimeout: 500 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestPushPop(t *testing.T) {
	ctx := context.Background()

	t.Run("jobs are claimed in submission order", func(t *testing.T) {
		client, _ := setupTestClient(t)

		for i, goal := range []string{"first", "second", "third"} {
			require.NoError(t, client.Push(ctx, Job{
				ID:          fmt.Sprintf("job-%d", i),
				Goal:        goal,
				SubmittedAt: int64(i),
			}))
		}

		n, err := client.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		for _, want := range []string{"first", "second", "third"} {
			job, err := client.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, want, job.Goal)
		}
	})

	t.Run("pop times out on an empty queue", func(t *testing.T) {
		client, _ := setupTestClient(t)

		job, err := client.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("invalid jobs are rejected", func(t *testing.T) {
		client, mr := setupTestClient(t)

		err := client.Push(ctx, Job{ID: "j1", Goal: "  "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid job")
		assert.False(t, mr.Exists(DefaultQueue))
	})

	t.Run("malformed payload", func(t *testing.T) {
		client, mr := setupTestClient(t)
		_, err := mr.Lpush(DefaultQueue, "{not json")
		require.NoError(t, err)

		_, err = client.Pop(ctx, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal job")
	})

	t.Run("submit assigns id and timestamp", func(t *testing.T) {
		client, mr := setupTestClient(t)

		before := time.Now().UnixMilli()
		job, err := client.Submit(ctx, "Scan 10.0.0.5")
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.GreaterOrEqual(t, job.SubmittedAt, before)

		items, err := mr.List(DefaultQueue)
		require.NoError(t, err)
		require.Len(t, items, 1)

		var stored Job
		require.NoError(t, json.Unmarshal([]byte(items[0]), &stored))
		assert.Equal(t, *job, stored)
	})

	t.Run("custom queue name", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(RedisOptions{
			URL:   fmt.Sprintf("redis://%s", mr.Addr()),
			Queue: "custom:queue",
		})
		require.NoError(t, err)
		defer client.Close()

		_, err = client.Submit(ctx, "goal")
		require.NoError(t, err)
		assert.True(t, mr.Exists("custom:queue"))
		assert.False(t, mr.Exists(DefaultQueue))
	})
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := client.Subscribe(ctx)
	require.NoError(t, err)

	sent := mission.Event{
		Type:      mission.EventDispatched,
		MissionID: "m-1",
		Turn:      2,
		Agent:     "net",
		Task:      "nmap 10.0.0.5",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, client.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.MissionID, got.MissionID)
		assert.Equal(t, sent.Agent, got.Agent)
		assert.Equal(t, sent.Turn, got.Turn)
		assert.True(t, sent.Timestamp.Equal(got.Timestamp))
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	for range events {
	}
}

func TestPublishImplementsMissionPublisher(t *testing.T) {
	var _ mission.Publisher = (*RedisClient)(nil)
}

func TestHeartbeat(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Heartbeat(ctx, "worker-1"))

	key := "stingbot:worker:worker-1:health"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, heartbeatTTL, mr.TTL(key))

	mr.FastForward(heartbeatTTL + time.Second)
	assert.False(t, mr.Exists(key))
}

func TestWorkerCount(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	n, err := client.ActiveWorkers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, client.WorkerStarted(ctx))
	require.NoError(t, client.WorkerStarted(ctx))
	require.NoError(t, client.WorkerStopped(ctx))

	n, err = client.ActiveWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr string
	}{
		{name: "valid", job: Job{ID: "a", Goal: "g", SubmittedAt: 1}},
		{name: "missing id", job: Job{Goal: "g"}, wantErr: "job id is required"},
		{name: "blank goal", job: Job{ID: "a", Goal: "\n"}, wantErr: "goal is required"},
		{name: "negative time", job: Job{ID: "a", Goal: "g", SubmittedAt: -1}, wantErr: "non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
