package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/stingbot/mission"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	TLS *tls.Config

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Queue and Channel override DefaultQueue and DefaultChannel.
	Queue   string
	Channel string

	Logger *slog.Logger
}

// RedisClient is the mission queue and event bus.
type RedisClient struct {
	client  *redis.Client
	queue   string
	channel string
	logger  *slog.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Queue == "" {
		opts.Queue = DefaultQueue
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client:  client,
		queue:   opts.Queue,
		channel: opts.Channel,
		logger:  opts.Logger,
	}, nil
}

// Redis exposes the underlying client for sinks and journals sharing the
// connection.
func (c *RedisClient) Redis() *redis.Client {
	return c.client
}

// Submit enqueues a new job for goal.
func (c *RedisClient) Submit(ctx context.Context, goal string) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		Goal:        goal,
		SubmittedAt: time.Now().UnixMilli(),
	}
	if err := c.Push(ctx, *job); err != nil {
		return nil, err
	}
	return job, nil
}

// Push enqueues job.
func (c *RedisClient) Push(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := c.client.LPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", c.queue, err)
	}
	return nil
}

// Pop claims the oldest job, waiting up to timeout. It returns (nil, nil)
// when the wait times out. A zero timeout blocks until a job arrives or ctx
// is done.
func (c *RedisClient) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := c.client.BRPop(ctx, timeout, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", c.queue, err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Len returns the number of pending jobs.
func (c *RedisClient) Len(ctx context.Context) (int64, error) {
	n, err := c.client.LLen(ctx, c.queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Publish sends a mission event to the events channel.
func (c *RedisClient) Publish(ctx context.Context, ev mission.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", c.channel, err)
	}
	return nil
}

// Subscribe streams mission events until ctx is done.
func (c *RedisClient) Subscribe(ctx context.Context) (<-chan mission.Event, error) {
	pubsub := c.client.Subscribe(ctx, c.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", c.channel, err)
	}

	events := make(chan mission.Event)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev mission.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.logger.Warn("dropping malformed mission event", "error", err)
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Heartbeat refreshes the worker's health key.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string) error {
	if err := c.client.Set(ctx, heartbeatKey(workerID), "ok", heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// WorkerStarted increments the active worker count.
func (c *RedisClient) WorkerStarted(ctx context.Context) error {
	if err := c.client.Incr(ctx, activeWorkersKey).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count: %w", err)
	}
	return nil
}

// WorkerStopped decrements the active worker count.
func (c *RedisClient) WorkerStopped(ctx context.Context) error {
	if err := c.client.Decr(ctx, activeWorkersKey).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count: %w", err)
	}
	return nil
}

// ActiveWorkers returns the active worker count.
func (c *RedisClient) ActiveWorkers(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, activeWorkersKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
