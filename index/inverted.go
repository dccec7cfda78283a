package index

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/querygo/lookup"
	"github.com/hupe1980/querygo/record"
)

// Inverted accelerates exact and in predicates over a fixed slice of
// records. Postings are roaring bitmaps of row positions keyed by field
// path and canonical value key.
//
// The index is built once per record snapshot and is read-only after
// Build. Records that resolve a field to null are not indexed under it,
// so predicates with null operands never consult the index.
type Inverted struct {
	// field -> value key -> rows
	fields map[string]map[string]*roaring.Bitmap
	rows   int
}

// Build indexes the given field paths of a record snapshot. Row IDs are
// record positions in the slice. Dotted paths are resolved the same way
// predicates resolve them.
func Build(records []record.Record, fields []string) *Inverted {
	ix := &Inverted{
		fields: make(map[string]map[string]*roaring.Bitmap, len(fields)),
		rows:   len(records),
	}
	for _, f := range fields {
		ix.fields[f] = make(map[string]*roaring.Bitmap)
	}

	for row, rec := range records {
		for f, postings := range ix.fields {
			v := rec.Resolve(f)
			if v.IsNull() {
				continue
			}
			vk := v.Key()
			pb, ok := postings[vk]
			if !ok {
				pb = roaring.New()
				postings[vk] = pb
			}
			pb.Add(uint32(row))
		}
	}

	return ix
}

// Rows returns the number of indexed records.
func (ix *Inverted) Rows() int {
	if ix == nil {
		return 0
	}
	return ix.rows
}

// Has reports whether the field path is indexed.
func (ix *Inverted) Has(field string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.fields[field]
	return ok
}

// Fields returns the indexed field paths, sorted.
func (ix *Inverted) Fields() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.fields))
	for f := range ix.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Candidates derives a bitmap of candidate rows for a conjunctive group.
// Only exact and in predicates over indexed fields contribute; the
// result is a superset of the rows the group matches, so callers must
// still evaluate the group against each candidate. ok is false when no
// predicate could consult the index or the group is negated.
//
// Negated groups never narrow: NOT(a AND b) can match rows that carry
// none of the indexed values.
func (ix *Inverted) Candidates(g lookup.Group) (*roaring.Bitmap, bool) {
	if ix == nil || g.Negated() || g.Len() == 0 {
		return nil, false
	}

	var acc *roaring.Bitmap
	matched := false

	for _, p := range g.Predicates() {
		if !ix.Has(p.Path) {
			continue
		}

		var pb *roaring.Bitmap
		switch p.Operator {
		case lookup.OpExact:
			// Null operands match rows with missing fields, which are
			// not indexed.
			if p.Operand.IsNull() {
				continue
			}
			pb = ix.postings(p.Path, p.Operand)

		case lookup.OpIn:
			arr, ok := p.Operand.AsArray()
			if !ok {
				continue
			}
			if hasNull(arr) {
				continue
			}
			pb = roaring.New()
			for _, el := range arr {
				pb.Or(ix.postings(p.Path, el))
			}

		default:
			continue
		}

		if acc == nil {
			acc = pb
		} else {
			acc.And(pb)
		}
		matched = true

		if acc.IsEmpty() {
			return acc, true
		}
	}

	if !matched {
		return nil, false
	}
	return acc, true
}

// postings unions the bitmaps for every key the operand can match.
// Integer and float values compare equal across kinds, so a numeric
// operand consults both keys.
func (ix *Inverted) postings(field string, v record.Value) *roaring.Bitmap {
	out := roaring.New()
	postings := ix.fields[field]
	if postings == nil {
		return out
	}
	for _, k := range candidateKeys(v) {
		if pb, ok := postings[k]; ok {
			out.Or(pb)
		}
	}
	return out
}

func hasNull(arr []record.Value) bool {
	for _, el := range arr {
		if el.IsNull() {
			return true
		}
	}
	return false
}

func candidateKeys(v record.Value) []string {
	keys := []string{v.Key()}
	switch v.Kind {
	case record.KindInt:
		keys = append(keys, record.Float(float64(v.I64)).Key())
	case record.KindFloat:
		f := v.F64
		if f == math.Trunc(f) && f >= -9223372036854775808 && f < 9223372036854775808 {
			keys = append(keys, record.Int(int64(f)).Key())
		}
	}
	return keys
}
