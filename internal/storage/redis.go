package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage is the shared remote backend. Hash-field atomicity is provided
// by the server, so no extra locking is needed.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to the Redis server at the given URL
// (redis://[user:pass@]host:port/db) and verifies the connection.
func NewRedisStorage(ctx context.Context, url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Delete removes a key and its value.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	return nil
}

// Get retrieves a plain string value. Returns "" for a missing key.
func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return val, nil
}

// Set merges fields into the hash at key, then refreshes the key TTL.
func (s *RedisStorage) Set(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if len(fields) > 0 {
		if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
			return fmt.Errorf("failed to set hash %q: %w", key, err)
		}
	}

	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return fmt.Errorf("failed to set TTL on %q: %w", key, err)
		}
	}

	return nil
}

// HGet retrieves a single hash field. Returns "" for a missing key or field.
func (s *RedisStorage) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get field %q of %q: %w", field, key, err)
	}

	return val, nil
}

// HGetAll retrieves the whole hash at key. Returns an empty map for a missing key.
func (s *RedisStorage) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	val, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get hash %q: %w", key, err)
	}

	return val, nil
}

// HDelete removes fields from the hash at key.
func (s *RedisStorage) HDelete(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	if err := s.client.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to delete fields of %q: %w", key, err)
	}

	return nil
}
