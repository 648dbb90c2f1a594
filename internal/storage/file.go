package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLockTimeout is the maximum time to wait for the advisory lock.
	DefaultLockTimeout = 30 * time.Second

	// lockRetryInterval is the interval between lock acquisition attempts.
	lockRetryInterval = 1 * time.Second

	typeHash = "hash"
)

// recordMeta describes one stored key. Expires is a duration in seconds
// counted from the later of Created and Updated; zero or negative means the
// key never expires.
type recordMeta struct {
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Updated int64  `json:"updated"`
	Expires int64  `json:"expires"`
}

// document is the whole on-disk state. The file is the unit of persistence
// and is rewritten atomically under the lock.
type document struct {
	Meta map[string]recordMeta      `json:"meta"`
	Data map[string]json.RawMessage `json:"data"`
}

// FileStorage is the single-node file backend. Every public operation takes
// an exclusive advisory file lock around a read-modify-write of the whole
// document, which makes it safe across processes on one host but not across
// hosts.
type FileStorage struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// NewFileStorage creates a file backend persisting to path. A lockTimeout of
// zero selects DefaultLockTimeout.
func NewFileStorage(path string, lockTimeout time.Duration) (*FileStorage, error) {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: lockTimeout,
	}, nil
}

// withLock runs fn while holding the exclusive advisory lock. Acquisition is
// a bounded retry; ErrLockTimeout is returned if the lock is never obtained.
// The lock is not reentrant: fn must not call back into the storage.
func (s *FileStorage) withLock(ctx context.Context, fn func() error) error {
	fileLock := flock.New(s.lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}

		return fmt.Errorf("failed to acquire file lock: %w", err)
	}

	if !locked {
		return ErrLockTimeout
	}

	// The lock file is left in place: unlinking it would let a waiter on the
	// old inode and a newcomer on a fresh one hold the "same" lock at once.
	defer func() {
		if errUnlock := fileLock.Unlock(); errUnlock != nil {
			log.Warn().Err(errUnlock).Str("path", s.lockPath).Msg("failed to release file lock")
		}
	}()

	return fn()
}

// load reads the document from disk and purges expired entries. The purged
// document is written back before the caller looks anything up, so a read can
// cause a rewrite.
func (s *FileStorage) load() (*document, error) {
	doc := &document{
		Meta: make(map[string]recordMeta),
		Data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if len(raw) > 0 {
		if errUnmarshal := json.Unmarshal(raw, doc); errUnmarshal != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, errUnmarshal)
		}
	}

	if doc.Meta == nil {
		doc.Meta = make(map[string]recordMeta)
	}

	if doc.Data == nil {
		doc.Data = make(map[string]json.RawMessage)
	}

	if s.purgeExpired(doc) {
		if errStore := s.store(doc); errStore != nil {
			return nil, errStore
		}
	}

	return doc, nil
}

// purgeExpired drops entries whose lifetime has lapsed and reports whether
// anything was removed.
func (s *FileStorage) purgeExpired(doc *document) bool {
	now := time.Now().Unix()
	purged := false

	for key, meta := range doc.Meta {
		if meta.Expires <= 0 {
			continue
		}

		stamp := meta.Created
		if meta.Updated > stamp {
			stamp = meta.Updated
		}

		if now > stamp+meta.Expires {
			delete(doc.Meta, key)
			delete(doc.Data, key)

			purged = true
		}
	}

	return purged
}

// store rewrites the whole document atomically via a temp file and rename.
func (s *FileStorage) store(doc *document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal storage document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}

	return nil
}

// hash decodes the hash stored at key, or an empty map if absent.
func (doc *document) hash(key string) (map[string]string, error) {
	raw, ok := doc.Data[key]
	if !ok {
		return map[string]string{}, nil
	}

	fields := make(map[string]string)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: key %q: %v", ErrCorruptDocument, key, err)
	}

	return fields, nil
}

// setHash encodes fields under key.
func (doc *document) setHash(key string, fields map[string]string) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal hash %q: %w", key, err)
	}

	doc.Data[key] = raw

	return nil
}

// Delete removes a key and its value.
func (s *FileStorage) Delete(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}

		if _, ok := doc.Meta[key]; !ok {
			return nil
		}

		delete(doc.Meta, key)
		delete(doc.Data, key)

		return s.store(doc)
	})
}

// Get retrieves a plain string value. Returns "" for a missing key.
func (s *FileStorage) Get(ctx context.Context, key string) (string, error) {
	var val string

	err := s.withLock(ctx, func() error {
		doc, errLoad := s.load()
		if errLoad != nil {
			return errLoad
		}

		raw, ok := doc.Data[key]
		if !ok {
			return nil
		}

		return json.Unmarshal(raw, &val)
	})

	return val, err
}

// Set merges fields into the hash at key and refreshes its lifetime. The
// record's creation time is preserved across merges.
func (s *FileStorage) Set(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	return s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}

		current, err := doc.hash(key)
		if err != nil {
			return err
		}

		for field, val := range fields {
			current[field] = val
		}

		if err := doc.setHash(key, current); err != nil {
			return err
		}

		now := time.Now().Unix()

		meta, ok := doc.Meta[key]
		if !ok {
			meta = recordMeta{Type: typeHash, Created: now}
		}

		meta.Updated = now
		meta.Expires = int64(ttl / time.Second)
		doc.Meta[key] = meta

		return s.store(doc)
	})
}

// HGet retrieves a single hash field. Returns "" for a missing key or field.
func (s *FileStorage) HGet(ctx context.Context, key, field string) (string, error) {
	var val string

	err := s.withLock(ctx, func() error {
		doc, errLoad := s.load()
		if errLoad != nil {
			return errLoad
		}

		fields, errHash := doc.hash(key)
		if errHash != nil {
			return errHash
		}

		val = fields[field]

		return nil
	})

	return val, err
}

// HGetAll retrieves the whole hash at key. Returns an empty map for a missing key.
func (s *FileStorage) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var fields map[string]string

	err := s.withLock(ctx, func() error {
		doc, errLoad := s.load()
		if errLoad != nil {
			return errLoad
		}

		fields, errLoad = doc.hash(key)

		return errLoad
	})

	return fields, err
}

// HDelete removes fields from the hash at key. Deleting from a missing key
// is a no-op.
func (s *FileStorage) HDelete(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}

	return s.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}

		current, err := doc.hash(key)
		if err != nil {
			return err
		}

		if len(current) == 0 {
			return nil
		}

		for _, field := range fields {
			delete(current, field)
		}

		if err := doc.setHash(key, current); err != nil {
			return err
		}

		return s.store(doc)
	})
}
