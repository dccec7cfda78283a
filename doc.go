// Package querygo provides a lazy, chainable query engine for in-memory
// collections of schema-less records.
//
// Querygo gives an ORM-like query surface over arbitrary record lists with
// production-ready features including:
//
//   - Django-style lookup expressions: "age__gte", "name__icontains", "tags__in"
//   - Immutable, chainable query sets: Filter, Exclude, OrderBy, Reverse, Slice
//   - Stable multi-key ordering with an explicit null policy (nulls sort first ascending)
//   - Projections: Values (field subset), ValuesList (positional tuples), Flat
//   - TTL record cache with stampede control and stale-on-failure fallback
//   - Roaring Bitmap-based inverted index for exact/in predicate acceleration
//   - Pluggable record sources: static data, JSON blobs, DynamoDB tables
//   - Snapshots: persist and restore cache contents through any BlobStore
//
// # Quick Start
//
// Create an engine over a static record source and query it:
//
//	ctx := context.Background()
//	src, err := source.StaticMaps([]map[string]any{
//	    {"name": "Alice", "age": 30},
//	    {"name": "Bob", "age": 25},
//	    {"name": "Cara", "age": 25},
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	eng, err := querygo.New(src)
//	if err != nil {
//	    panic(err)
//	}
//
//	adults, err := eng.Query().
//	    Filter(lookup.GTE("age", record.Int(25))).
//	    OrderBy("-age", "name").
//	    All(ctx)
//	// -> Alice(30), Bob(25), Cara(25)
//
// Lookup expressions can also be parsed from Django-style strings:
//
//	qs := eng.Query().Filter(
//	    lookup.Parse("name__istartswith", record.String("a")),
//	)
//
// # Laziness
//
// Chaining never touches the record source. Work happens only when a
// terminal operation runs: All, Iter, Count, Exists, First, Last, Get,
// Tuples or Flat. Every chaining call returns a new QuerySet; the
// receiver is never modified, so query sets are safe to share and fork:
//
//	base := eng.Query().Filter(lookup.Exact("active", record.Bool(true)))
//	young := base.Filter(lookup.LT("age", record.Int(30)))
//	old := base.Filter(lookup.GTE("age", record.Int(30)))
//
// # Caching
//
// Without a cache the engine fetches from its source on every terminal
// operation. With one, fetches are coalesced and TTL-bounded, and a
// failing source degrades to stale records instead of an error:
//
//	eng, err := querygo.New(src,
//	    querygo.WithCache(cache.New()),
//	    querygo.WithCacheTTL(time.Minute),
//	)
//
// Cache contents survive restarts through snapshots:
//
//	store, _ := blobstore.NewLocalStore("./data")
//	_ = eng.WriteSnapshot(ctx, store, "records.snap")
//
// # Indexing
//
// For large record sets behind a cache, WithIndexFields builds an
// inverted index over the named fields so exact and in predicates skip
// the linear scan:
//
//	eng, err := querygo.New(src,
//	    querygo.WithCache(cache.New()),
//	    querygo.WithIndexFields("region", "env"),
//	)
//
// The index is rebuilt lazily whenever the cached records change and is
// transparent: results are identical with and without it.
package querygo
