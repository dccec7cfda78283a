package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC32-Castagnoli checksum of data. The table is
// built once at init; Go's crc32 uses hardware instructions where the
// CPU has them.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Verify reports whether data checksums to want. Callers treat a
// mismatch as corruption, not as a recoverable error.
func Verify(data []byte, want uint32) bool {
	return crc32.Checksum(data, castagnoli) == want
}
