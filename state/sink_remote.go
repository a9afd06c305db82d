package state

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// RedisSink mirrors snapshots into a Redis string key.
type RedisSink struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisSink creates a sink storing snapshots under key. A zero ttl keeps
// the key without expiry.
func NewRedisSink(client redis.Cmdable, key string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, key: key, ttl: ttl}
}

// RedisKey returns the conventional key for a mission's graph.
func RedisKey(missionID string) string {
	return fmt.Sprintf("stingbot:missions:%s:attack_graph", missionID)
}

// Save stores the snapshot.
func (s *RedisSink) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// EtcdSink mirrors snapshots into an etcd key.
type EtcdSink struct {
	kv  clientv3.KV
	key string
}

// NewEtcdSink creates a sink storing snapshots under key.
func NewEtcdSink(kv clientv3.KV, key string) *EtcdSink {
	return &EtcdSink{kv: kv, key: key}
}

// EtcdKey returns the conventional key for a mission's graph:
// /<namespace>/missions/<id>/attack_graph.
func EtcdKey(namespace, missionID string) string {
	return path.Join("/", namespace, "missions", missionID, "attack_graph")
}

// Save stores the snapshot.
func (s *EtcdSink) Save(ctx context.Context, data []byte) error {
	if _, err := s.kv.Put(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("etcd put %s: %w", s.key, err)
	}
	return nil
}

// LoadRedis reads a snapshot mirrored by a RedisSink.
func LoadRedis(ctx context.Context, client redis.Cmdable, key string) (*Snapshot, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Memory == nil {
		snap.Memory = make(map[string]any)
	}
	return &snap, nil
}
