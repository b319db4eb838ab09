package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/history"
)

// RedisStore keeps entries in a capped Redis list, newest at the head.
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string // Redis server address (e.g., "localhost:6379")
	Password string // Redis password (if any)
	DB       int    // Redis database number
	Key      string // List key holding the entries
	Limit    int    // Maximum retained entries (0 means unbounded)
}

// NewRedisStore creates a new Redis-based history store
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{Addr: "localhost:6379"}
	}
	key := config.Key
	if key == "" {
		key = "termchat:history"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		key:    key,
		limit:  config.Limit,
	}
}

// Append pushes an entry and trims the list to the configured limit.
func (s *RedisStore) Append(ctx context.Context, entry *history.Entry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil: %w", errs.ErrInvalidInput)
	}
	history.Prepare(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	if s.limit > 0 {
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store history entry in Redis: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]*history.Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		if err == redis.Nil {
			return []*history.Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history from Redis: %w", err)
	}

	entries := make([]*history.Entry, 0, len(raw))
	for _, item := range raw {
		var e history.Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// Clear removes all entries from Redis
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete history list: %w", err)
	}
	return nil
}

// Count returns the number of entries in Redis
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}
	return int(n), nil
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
