// Package hash provides the CRC32-Castagnoli checksums used for data
// integrity.
//
// Every checksum in querygo is CRC32C: snapshot payloads carry one in
// their trailer, S3 uploads attach one as object metadata, and derived
// cache keys embed one to stay short but collision-resistant. Using a
// single polynomial everywhere keeps persisted sums comparable across
// writers.
//
// CRC32C is hardware-accelerated on x86 (SSE4.2) and ARM, and is the
// same polynomial used by iSCSI, RocksDB and LevelDB.
package hash
