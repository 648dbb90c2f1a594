package storage

import "errors"

var (
	// ErrLockTimeout is returned when the file backend's advisory lock could
	// not be acquired within the configured timeout.
	ErrLockTimeout = errors.New("storage: file lock acquisition timed out")

	// ErrCorruptDocument is returned when the on-disk document cannot be parsed.
	ErrCorruptDocument = errors.New("storage: malformed on-disk document")

	// ErrUnknownBackend is returned when the configured backend name is not
	// one of "file" or "redis".
	ErrUnknownBackend = errors.New("storage: unknown backend")
)
