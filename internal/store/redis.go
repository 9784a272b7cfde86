package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore implements SnapshotStore on plain Redis string keys.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotStore wraps client. Keys are written as "<prefix>:<name>";
// an empty prefix stores names as-is.
func NewRedisSnapshotStore(client *redis.Client, prefix string) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, prefix: prefix}
}

func (s *RedisSnapshotStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// LoadSnapshot retrieves the payload stored under name.
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	return payload, nil
}

// SaveSnapshot replaces the payload stored under name. Snapshots never expire.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, name string, payload []byte) error {
	if err := s.client.Set(ctx, s.key(name), payload, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", name, err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot stored under name.
func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", name, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
