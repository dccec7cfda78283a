package record

import (
	"sort"
	"strings"
)

// Record is a schema-less attribute bag.
//
// It is intentionally a typed model (map[string]Value) to keep filtering
// fast. If you need to ingest legacy map[string]any data, use the adapter
// helpers in this package.
type Record map[string]Value

// Clone creates a deep copy of the record.
//
// This is the safe default to prevent external mutation after a source
// handed records to the engine. Values are deep copied, including arrays
// and nested objects, ensuring the clone is completely independent from
// the original.
//
// Performance: Typically <1% overhead since records are small (2-10 fields).
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}

	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v.clone()
	}
	return clone
}

// CloneIfNeeded clones a record only if it's non-nil and non-empty.
//
// This helper avoids allocation for empty records, which is common.
// Returns nil if the input is nil or empty.
func CloneIfNeeded(r Record) Record {
	if len(r) == 0 {
		return nil
	}
	return r.Clone()
}

// Resolve returns the value at the given field path.
//
// A literal field name wins over path traversal; otherwise the path is
// split on "." and walked through nested objects. Any missing hop,
// non-object intermediate or null along the way yields Null rather than
// an error, so predicates over sparse records simply fail to match.
func (r Record) Resolve(path string) Value {
	if v, ok := r[path]; ok {
		return v
	}
	if !strings.Contains(path, ".") {
		return Null()
	}

	cur := map[string]Value(r)
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return Null()
		}
		if i == len(segs)-1 {
			return v
		}
		obj, ok := v.AsObject()
		if !ok {
			return Null()
		}
		cur = obj
	}
	return Null()
}

// Project builds a new record holding only the given field paths.
//
// Each field is resolved with Resolve and stored under the requested path
// string, so nested values surface under their dotted name. Unresolvable
// fields project to null.
func (r Record) Project(fields []string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		out[f] = r.Resolve(f)
	}
	return out
}

// Key returns a stable string representation of the whole record.
//
// Fields are visited in sorted order, so two records with equal contents
// produce equal keys regardless of map iteration order. It is used for
// distinct de-duplication and must remain stable across versions.
func (r Record) Key() string {
	if len(r) == 0 {
		return ""
	}

	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(name)
		b.WriteByte('\x1e')
		b.WriteString(r[name].Key())
	}
	return b.String()
}
