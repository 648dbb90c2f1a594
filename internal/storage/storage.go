// Package storage provides the key/value store used by the token subsystem.
//
// Two interchangeable backends implement the Storage interface:
//   - RedisStorage: a thin pass-through to a shared Redis server with native
//     per-key TTL support. Suitable for multi-host deployments.
//   - FileStorage: a single JSON document on disk guarded by a cross-process
//     advisory file lock. Correct for multiple processes sharing one machine,
//     not for multiple hosts.
//
// A TTL of zero means the key never expires. A non-existent key is not an
// error: hash reads return an empty map and scalar reads an empty string.
package storage

import (
	"context"
	"time"
)

// Storage is a key/value store with per-key TTL and a nested-map ("hash")
// operation set.
type Storage interface {
	// Delete removes a key and its value.
	Delete(ctx context.Context, key string) error

	// Get retrieves a plain string value. Returns "" for a missing key.
	Get(ctx context.Context, key string) (string, error)

	// Set merges fields into the hash stored at key and refreshes its TTL.
	// Fields already present under other names are preserved.
	Set(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// HGet retrieves a single hash field. Returns "" for a missing key or field.
	HGet(ctx context.Context, key, field string) (string, error)

	// HGetAll retrieves the whole hash stored at key. Returns an empty map
	// for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HDelete removes fields from the hash stored at key.
	HDelete(ctx context.Context, key string, fields ...string) error
}
