// Package record implements the typed value model the query engine
// operates on.
//
// A Record is a schema-less map of field names to small typed Values
// (null, int, float, string, bool, time, array, object). Nested objects
// are addressed with dotted paths; resolving a missing or null hop yields
// null instead of an error, so predicates over sparse data simply do not
// match.
//
// Adapters convert legacy map[string]any data, decoded JSON and plain
// structs into Records.
package record
