package querygo

import (
	"log/slog"
	"time"

	"github.com/hupe1980/querygo/cache"
	"github.com/hupe1980/querygo/lookup"
)

// DefaultTTL is the cache entry lifetime used when WithCache is set
// without WithCacheTTL.
const DefaultTTL = 5 * time.Minute

type options struct {
	registry         *lookup.Registry
	cache            *cache.Cache
	cacheKey         string
	ttl              time.Duration
	indexFields      []string
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine constructor behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. cache-specific constructor variants).
type Option func(*options)

// WithRegistry configures the lookup operator registry used to resolve
// "field__operator" predicates.
//
// If nil is passed, the shared lookup.Default registry is used.
// Registries are the hook for custom operators:
//
//	reg := lookup.DefaultRegistry()
//	reg.Register("divisible_by", myDivisibleLookup)
//	eng, _ := querygo.New(src, querygo.WithRegistry(reg))
func WithRegistry(r *lookup.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithCache configures TTL caching of fetched records. Without a cache
// the engine fetches from its source on every evaluation.
//
// Example:
//
//	c := cache.New()
//	eng, _ := querygo.New(src,
//	    querygo.WithCache(c),
//	    querygo.WithCacheTTL(time.Minute),
//	)
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheKey overrides the cache key derived from the source. Set it
// when entries must survive a restart (snapshots) or when several
// engines intentionally share one entry. Derived keys are per-engine
// for func-backed sources, so sharing those always needs an explicit
// key.
func WithCacheKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.cacheKey = key
		}
	}
}

// WithCacheTTL configures how long fetched records stay fresh.
// Defaults to DefaultTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithIndexFields builds an inverted index over the given fields after
// each fetch, accelerating exact and membership filters on them. Only
// worthwhile together with WithCache: an uncached engine sees a fresh
// collection every evaluation, so there is nothing stable to index.
//
// Example:
//
//	eng, _ := querygo.New(src,
//	    querygo.WithCache(cache.New()),
//	    querygo.WithIndexFields("env", "region"),
//	)
func WithIndexFields(fields ...string) Option {
	return func(o *options) {
		o.indexFields = fields
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &querygo.BasicMetricsCollector{}
//	eng, _ := querygo.New(src, querygo.WithMetricsCollector(metrics))
//	// ... run queries ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := querygo.NewJSONLogger(slog.LevelInfo)
//	eng, _ := querygo.New(src, querygo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		registry:         lookup.Default,
		ttl:              DefaultTTL,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
