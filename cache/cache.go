package cache

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/querygo/record"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// FetchFunc loads the records for a cache key from the backing source.
type FetchFunc func(ctx context.Context) ([]record.Record, error)

// Result is the outcome of a cache lookup. Stale marks records served
// past their TTL because a fresh fetch failed or is still in flight.
type Result struct {
	Records   []record.Record
	Stale     bool
	FetchedAt time.Time
}

type entry struct {
	records   []record.Record
	fetchedAt time.Time
	ttl       time.Duration
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

// Cache is a TTL record cache with request coalescing and stale
// fallback. Expiry is lazy: entries are checked on access, never
// evicted in the background, and a stale entry is kept as fallback
// material until it is overwritten or invalidated.
//
// All methods are safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	inflight map[string]struct{}
	group    singleflight.Group

	now     func() time.Time
	logger  *slog.Logger
	limiter *rate.Limiter

	hits          atomic.Int64
	misses        atomic.Int64
	staleServes   atomic.Int64
	fetches       atomic.Int64
	fetchFailures atomic.Int64
}

type options struct {
	clock   func() time.Time
	logger  *slog.Logger
	limiter *rate.Limiter
}

// Option configures a Cache.
type Option func(*options)

// WithClock overrides the time source used for freshness checks.
// Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger configures structured logging for cache operations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFetchLimit rate-limits fetches across all keys. A throttled fetch
// fails with ErrFetchThrottled, which counts as a fetch failure: callers
// holding a stale entry fall back to it.
func WithFetchLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// New creates an empty cache.
func New(optFns ...Option) *Cache {
	o := options{
		clock: time.Now,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]struct{}),
		now:      o.clock,
		logger:   o.logger,
		limiter:  o.limiter,
	}
}

// GetOrFetch returns the records for key, fetching them when the cached
// entry is missing or past its TTL.
//
// Concurrent callers coalesce: no matter how many goroutines miss at
// once, fetch runs at most once per key at a time. Callers that hold a
// stale entry while another fetch is in flight are served the stale
// records immediately instead of waiting.
//
// When the fetch fails and a previous entry exists, that entry is
// returned with Stale=true and a nil error. Without fallback material
// the failure surfaces as ErrFetchFailed wrapping the cause.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (Result, error) {
	if ttl < 0 {
		ttl = 0
	}
	now := c.now()

	c.mu.RLock()
	e := c.entries[key]
	_, running := c.inflight[key]
	c.mu.RUnlock()

	if e != nil && e.fresh(now) {
		c.hits.Add(1)
		return Result{Records: e.records, FetchedAt: e.fetchedAt}, nil
	}
	c.misses.Add(1)

	// A stale entry plus an in-flight fetch means another caller is
	// already refreshing this key; serve the stale records without
	// waiting for it.
	if e != nil && running {
		c.staleServes.Add(1)
		c.logger.Debug("serving stale records during refresh", "key", key)
		return Result{Records: e.records, Stale: true, FetchedAt: e.fetchedAt}, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A just-completed flight may have refilled the entry while
		// this caller queued.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.fresh(c.now()) {
			c.mu.Unlock()
			return Result{Records: e.records, FetchedAt: e.fetchedAt}, nil
		}
		c.inflight[key] = struct{}{}
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
		}()

		return c.fetchAndStore(ctx, key, fetch, ttl)
	})
	if err != nil {
		// Fetch failed. Fall back to the last known records when we
		// have them; callers see Stale=true and no error.
		c.mu.RLock()
		e := c.entries[key]
		c.mu.RUnlock()
		if e != nil {
			c.staleServes.Add(1)
			c.logger.Warn("fetch failed, serving stale records",
				"key", key,
				"error", err,
			)
			return Result{Records: e.records, Stale: true, FetchedAt: e.fetchedAt}, nil
		}
		return Result{}, &ErrFetchFailed{Key: key, cause: err}
	}

	return v.(Result), nil
}

func (c *Cache) fetchAndStore(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (Result, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.fetchFailures.Add(1)
		return Result{}, ErrFetchThrottled
	}

	c.fetches.Add(1)
	records, err := fetch(ctx)
	if err != nil {
		c.fetchFailures.Add(1)
		return Result{}, err
	}

	fetchedAt := c.now()
	c.mu.Lock()
	c.entries[key] = &entry{records: records, fetchedAt: fetchedAt, ttl: ttl}
	c.mu.Unlock()

	c.logger.Debug("records fetched",
		"key", key,
		"count", len(records),
	)
	return Result{Records: records, FetchedAt: fetchedAt}, nil
}

// Refresh fetches unconditionally and overwrites the entry on success.
// It bypasses request coalescing: every call fetches. Failures propagate
// as ErrFetchFailed without stale fallback, and the previous entry is
// left untouched so later GetOrFetch calls still have fallback material.
func (c *Cache) Refresh(ctx context.Context, key string, fetch FetchFunc, ttl time.Duration) (Result, error) {
	if ttl < 0 {
		ttl = 0
	}

	res, err := c.fetchAndStore(ctx, key, fetch, ttl)
	if err != nil {
		c.logger.Warn("refresh failed",
			"key", key,
			"error", err,
		)
		return Result{}, &ErrFetchFailed{Key: key, cause: err}
	}

	c.logger.Debug("records refreshed",
		"key", key,
		"count", len(res.Records),
	)
	return res, nil
}

// Invalidate drops the entry for key. An in-flight fetch for the key is
// forgotten: its result will not be shared with future callers.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.group.Forget(key)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Contains reports whether an entry exists for key, fresh or stale.
func (c *Cache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns all entry keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries       int
	Hits          int64
	Misses        int64
	StaleServes   int64
	Fetches       int64
	FetchFailures int64
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:       c.Len(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		StaleServes:   c.staleServes.Load(),
		Fetches:       c.fetches.Load(),
		FetchFailures: c.fetchFailures.Load(),
	}
}
