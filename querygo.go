package querygo

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/querygo/blobstore"
	"github.com/hupe1980/querygo/cache"
	"github.com/hupe1980/querygo/index"
	"github.com/hupe1980/querygo/lookup"
	"github.com/hupe1980/querygo/record"
	"github.com/hupe1980/querygo/source"
)

// Engine binds a record source to a lookup registry and an optional
// cache. It is the entry point for building query sets.
type Engine struct {
	src      source.Fetcher
	registry *lookup.Registry
	cache    *cache.Cache
	cacheKey string
	ttl      time.Duration
	metrics  MetricsCollector
	logger   *Logger

	// Inverted index over the latest cached snapshot, rebuilt lazily
	// whenever the snapshot's fetch time changes.
	indexFields []string
	mu          sync.Mutex
	idx         *index.Inverted
	idxAt       int64
}

// engineSeq disambiguates default cache keys for func-backed sources.
// Closures of one function literal share a code pointer, so without a
// per-engine suffix two such engines would silently serve each other's
// records.
var engineSeq atomic.Int64

// New creates an Engine over the given record source.
func New(src source.Fetcher, optFns ...Option) (*Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("querygo: source fetcher is nil")
	}

	opts := applyOptions(optFns)

	cacheKey := opts.cacheKey
	if cacheKey == "" {
		cacheKey = cache.KeyFor(src)
		if reflect.ValueOf(src).Kind() == reflect.Func {
			cacheKey = fmt.Sprintf("%s#%d", cacheKey, engineSeq.Add(1))
		}
	}

	return &Engine{
		src:         src,
		registry:    opts.registry,
		cache:       opts.cache,
		cacheKey:    cacheKey,
		ttl:         opts.ttl,
		metrics:     opts.metricsCollector,
		logger:      opts.logger.With("key", cacheKey),
		indexFields: opts.indexFields,
	}, nil
}

// Query returns an empty query set bound to the engine. The returned
// set matches every record in the source until narrowed by chaining.
func (e *Engine) Query() QuerySet {
	return QuerySet{eng: e, limit: -1}
}

// Registry returns the lookup registry the engine resolves operator
// names against.
func (e *Engine) Registry() *lookup.Registry {
	return e.registry
}

// fetch materializes the source records, through the cache when one is
// configured. stale reports whether the records outlived their TTL and
// are served as fallback.
func (e *Engine) fetch(ctx context.Context) (records []record.Record, stale bool, fetchedAt time.Time, err error) {
	start := time.Now()

	if e.cache == nil {
		records, err = e.src.Fetch(ctx)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSourceFetch, err)
		}
		e.metrics.RecordFetch(time.Since(start), len(records), false, err)
		e.logger.LogFetch(ctx, len(records), false, err)
		if err != nil {
			return nil, false, time.Time{}, err
		}
		return records, false, start, nil
	}

	res, ferr := e.cache.GetOrFetch(ctx, e.cacheKey, e.src.Fetch, e.ttl)
	err = translateError(ferr)
	e.metrics.RecordFetch(time.Since(start), len(res.Records), res.Stale, err)
	e.logger.LogFetch(ctx, len(res.Records), res.Stale, err)
	if err != nil {
		return nil, false, time.Time{}, err
	}
	return res.Records, res.Stale, res.FetchedAt, nil
}

// indexFor returns the inverted index for the given record snapshot, or
// nil when indexing is disabled. The index is only maintained for
// cached records: without a cache every evaluation sees a fresh slice
// and an index would be rebuilt per query, costing more than the scan
// it avoids.
func (e *Engine) indexFor(records []record.Record, fetchedAt time.Time) *index.Inverted {
	if len(e.indexFields) == 0 || e.cache == nil {
		return nil
	}

	at := fetchedAt.UnixNano()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.idx == nil || e.idxAt != at || e.idx.Rows() != len(records) {
		e.idx = index.Build(records, e.indexFields)
		e.idxAt = at
	}
	return e.idx
}

// Invalidate drops the engine's cache entry, forcing the next terminal
// operation to fetch from the source. It is a no-op without a cache.
func (e *Engine) Invalidate() {
	if e.cache == nil {
		return
	}
	e.cache.Invalidate(e.cacheKey)
}

// Refresh eagerly re-fetches the source and replaces the cache entry.
// Unlike GetOrFetch-driven evaluation, a failing fetch propagates its
// error instead of degrading to stale records; the previous entry is
// left in place. Refresh requires a cache.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.cache == nil {
		return fmt.Errorf("querygo: refresh requires a cache (use WithCache)")
	}

	start := time.Now()
	res, err := e.cache.Refresh(ctx, e.cacheKey, e.src.Fetch, e.ttl)
	err = translateError(err)
	e.metrics.RecordRefresh(time.Since(start), err)
	e.logger.LogRefresh(ctx, len(res.Records), err)
	return err
}

// WriteSnapshot persists the engine's cache contents to the given blob
// store under name. See cache.WriteSnapshot for the format and options.
func (e *Engine) WriteSnapshot(ctx context.Context, store blobstore.BlobStore, name string, optFns ...cache.SnapshotOption) error {
	if e.cache == nil {
		return fmt.Errorf("querygo: snapshots require a cache (use WithCache)")
	}
	err := e.cache.WriteSnapshot(ctx, store, name, optFns...)
	e.logger.LogSnapshot(ctx, name, e.cache.Len(), err)
	return err
}

// ReadSnapshot restores cache contents from the named blob. Restored
// entries keep their original fetch time, so entries past their TTL
// come back as stale-fallback material rather than fresh data.
func (e *Engine) ReadSnapshot(ctx context.Context, store blobstore.BlobStore, name string) (int, error) {
	if e.cache == nil {
		return 0, fmt.Errorf("querygo: snapshots require a cache (use WithCache)")
	}
	entries, err := e.cache.ReadSnapshot(ctx, store, name)
	e.logger.LogSnapshot(ctx, name, entries, err)
	return entries, err
}

// CacheStats returns counters from the underlying cache, or the zero
// value without one.
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}
