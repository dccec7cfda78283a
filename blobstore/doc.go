// Package blobstore provides storage abstraction for immutable data blobs.
//
// BlobStore is the interface for reading and writing blobs (JSON source
// documents, cache snapshots). Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - MemoryStore: In-memory store for tests
//   - LocalStore: Local filesystem with atomic writes
//   - s3.Store: Amazon S3 with range reads and streaming uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends.
// For cloud backends, implement ReadRange as a single range request for
// efficient partial reads.
package blobstore
