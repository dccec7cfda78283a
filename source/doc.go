// Package source provides record fetchers for query engines.
//
// A Fetcher loads the complete collection a query engine evaluates
// over. Implementations range from fixed in-memory data to remote
// backends:
//
//   - Static / StaticMaps / StaticStructs — fixed collections
//   - Settings — in-process configuration values as virtual rows
//   - JSON — a JSON blob in any blobstore.BlobStore
//   - DynamoDB — a full table scan, optionally in parallel segments
//
// Fetchers are deliberately dumb: no caching, no retries. The cache
// package layers TTLs, coalescing and stale fallback on top.
package source
