// Package cache provides TTL caching for fetched record sets.
//
// # Fetch Coalescing
//
// GetOrFetch deduplicates concurrent fetches for the same key using
// singleflight: under a stampede, exactly one fetch runs and every
// caller shares its result. While a fetch is in flight, callers that
// still hold an expired entry are served stale data immediately
// instead of blocking.
//
// Key features:
//   - Stale-on-failure: an expired entry outlives a failed refetch
//   - Optional rate limiting of upstream fetches via WithFetchLimit
//   - Injectable clock for deterministic expiry in tests
//
// # Snapshots
//
// WriteSnapshot and ReadSnapshot persist the cache through a
// blobstore.BlobStore. Snapshots are self-describing (codec name and
// compression travel in the header) and checksummed with CRC32C.
// Restored entries keep their original fetch time, so an old snapshot
// seeds stale-fallback data rather than masquerading as fresh.
package cache
