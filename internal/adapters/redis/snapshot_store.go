package redis

// Package redis provides Redis-based adapters for the demobank API.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/demobank-api/internal/ports"
)

// DefaultSnapshotPrefix namespaces snapshot keys in a shared Redis.
const DefaultSnapshotPrefix = "demobank:snapshot:"

// SnapshotStore is a Redis-backed ports.SnapshotStore. Values are stored
// verbatim; a zero TTL keeps them until removed.
type SnapshotStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// SnapshotStoreOptions configures NewSnapshotStore.
type SnapshotStoreOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewSnapshotStore creates a new Redis-based snapshot store.
func NewSnapshotStore(client redis.UniversalClient, opts SnapshotStoreOptions) *SnapshotStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultSnapshotPrefix
	}
	return &SnapshotStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ports.ErrSnapshotNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *SnapshotStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("snapshot key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
