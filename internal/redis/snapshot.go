package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

// SnapshotStore keeps the in-progress session under a single Redis key
type SnapshotStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// NewSnapshotStore creates a store over an existing client. A zero ttl keeps the key forever.
func NewSnapshotStore(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Load returns the saved snapshot, or nil when there is none.
// An unusable entry is deleted and reported as absent.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	snapshot, ok := domain.DecodeSnapshot(data)
	if !ok {
		s.logger.Warn("discarding unusable snapshot", "key", s.key)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return snapshot, nil
}

// Save replaces the stored snapshot
func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting snapshot: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}
