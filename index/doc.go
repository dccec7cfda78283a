// Package index provides an inverted index over record snapshots.
//
// Inverted maps field values to roaring bitmaps of row positions. The
// engine builds one per cached snapshot for the configured index fields
// and uses it to bound the scan for conjunctive exact/in predicates.
//
// # Acceleration Contract
//
// Candidates returns a superset of the matching rows, never the exact
// result: callers re-evaluate every predicate against each candidate.
// Indexing is therefore invisible in query results. Ordering is
// preserved by iterating candidate rows in ascending position.
//
// # Limitations
//
//   - Only exact and in predicates consult the index. Range, substring
//     and regex predicates scan.
//   - Negated groups never narrow the candidate set.
//   - Null operands fall back to scanning: rows with missing fields are
//     not indexed, but exact-null must match them.
//
// The index is rebuilt when the underlying snapshot changes and is
// read-only after Build, so lookups need no locking.
package index
