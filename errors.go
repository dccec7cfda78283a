package querygo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/querygo/cache"
)

var (
	// ErrNotFound is returned by Get when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrSourceFetch is returned when the backing source fails and no
	// stale fallback material exists. An outage is never masked as an
	// empty collection.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrInvalidProjection is returned when a terminal does not fit the
	// query's projection, e.g. All on a ValuesList query, Flat over
	// several fields, or ValuesList with no fields.
	ErrInvalidProjection = errors.New("invalid projection")
)

// ErrMultipleObjects indicates Get matched more than one record.
type ErrMultipleObjects struct {
	Count int
}

func (e *ErrMultipleObjects) Error() string {
	return fmt.Sprintf("get matched %d records, want exactly 1", e.Count)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Fetch failure unification: cache and direct source paths surface
	// the same way.
	var ff *cache.ErrFetchFailed
	if errors.As(err, &ff) {
		return fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}

	return err
}
