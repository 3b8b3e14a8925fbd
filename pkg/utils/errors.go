// Package utils provides shared utility helpers used across honeygraph.
// See config.Version for the module's semantic version.
package utils

import (
	"errors"
	"fmt"
)

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Sentinel error kinds, not types, so callers compare with errors.Is.
var (
	// ErrTransientIO covers graph/queue/snapshot command failures that
	// should be retried with backoff; the job is requeued and the fork
	// tip does not advance.
	ErrTransientIO = errors.New("transient io error")

	// ErrMalformedOperation covers a bad path or a type mismatch the
	// coercion layer can't rescue. Logged with the full op and dropped;
	// the rest of the batch continues.
	ErrMalformedOperation = errors.New("malformed operation")

	// ErrSchemaConflict is fatal at startup.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrDuplicateOperation marks a processed-op cache hit; silently
	// skipped, never surfaced as a failure.
	ErrDuplicateOperation = errors.New("duplicate operation")

	// ErrAuthFailure is rejected with the appropriate HTTP status and
	// never reaches the worker.
	ErrAuthFailure = errors.New("auth failure")

	// ErrSnapshotUnavailable marks a degraded (no-op) snapshot call.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrNotFound is returned by read paths for a missing entity.
	ErrNotFound = errors.New("not found")
)

// IsRetryable reports whether err (or anything it wraps) is the kind of
// failure the worker's retry/backoff policy should act on.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientIO)
}
