package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchThrottled is returned when the fetch rate limiter rejects
	// a fetch. It counts as a fetch failure, so stale fallback applies.
	ErrFetchThrottled = errors.New("fetch throttled")

	// ErrSnapshotCorrupt is returned when a snapshot fails validation.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
)

// ErrFetchFailed indicates a fetch failed with no stale fallback
// available.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrFetchFailed struct {
	Key   string
	cause error
}

func (e *ErrFetchFailed) Error() string {
	return fmt.Sprintf("fetch failed for key %q: %v", e.Key, e.cause)
}

func (e *ErrFetchFailed) Unwrap() error { return e.cause }
