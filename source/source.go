package source

import (
	"context"
	"slices"

	"github.com/hupe1980/querygo/record"
)

// Fetcher loads the complete record collection backing an engine.
//
// A fetcher may block or fail arbitrarily; timeouts and cancellation
// are its own business via the passed context. Fetch must be safe to
// call repeatedly and concurrently, since TTL-driven refetches happen
// at unpredictable times.
type Fetcher interface {
	Fetch(ctx context.Context) ([]record.Record, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]record.Record, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) ([]record.Record, error) {
	return f(ctx)
}

// StaticFetcher serves a fixed record collection.
type StaticFetcher struct {
	records []record.Record
}

// Static creates a fetcher over a fixed record collection. Records are
// deep-copied on construction, so mutating the caller's maps afterwards
// does not leak into query results.
func Static(records ...record.Record) *StaticFetcher {
	copied := make([]record.Record, len(records))
	for i := range records {
		copied[i] = records[i].Clone()
	}
	return &StaticFetcher{records: copied}
}

// StaticMaps creates a static fetcher from legacy map documents.
func StaticMaps(ms []map[string]any) (*StaticFetcher, error) {
	records, err := record.FromMaps(ms)
	if err != nil {
		return nil, err
	}
	return &StaticFetcher{records: records}, nil
}

// StaticStructs creates a static fetcher from a slice of structs. Field
// names follow the structs' JSON tags.
func StaticStructs[T any](vs []T) (*StaticFetcher, error) {
	records, err := record.FromStructs(vs)
	if err != nil {
		return nil, err
	}
	return &StaticFetcher{records: records}, nil
}

// Fetch returns the collection. The returned slice is the caller's to
// reorder; the records themselves are shared.
func (s *StaticFetcher) Fetch(ctx context.Context) ([]record.Record, error) {
	return slices.Clone(s.records), nil
}
