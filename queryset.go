package querygo

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/hupe1980/querygo/lookup"
	"github.com/hupe1980/querygo/record"
)

// orderKey is one component of a multi-key sort.
type orderKey struct {
	path string
	desc bool
}

// projection selects the shape of evaluated results.
type projection uint8

const (
	projectNone   projection = iota // full records
	projectValues                   // records narrowed to a field subset
	projectTuples                   // positional value tuples
)

// QuerySet is an immutable description of a query against an engine's
// record source: filter groups, ordering, a slice window, a projection
// and a distinct flag.
//
// Chaining methods return a new QuerySet and never modify the receiver,
// so sets can be shared and forked freely without synchronization. No
// chaining call touches the record source; evaluation happens only in
// terminal operations (All, Iter, Count, Exists, First, Last, Get,
// Tuples, Flat).
//
// Malformed chains (unknown operators, bad projections) do not fail at
// chain time either. The first such error is carried along and returned
// by whichever terminal operation runs.
type QuerySet struct {
	eng *Engine

	groups   []lookup.Group
	order    []orderKey
	reversed bool // only meaningful while order is empty

	offset int
	limit  int // -1 = unbounded

	proj     projection
	fields   []string
	distinct bool
	none     bool

	err error
}

// withErr records the first chain error; later ones are dropped.
func (qs QuerySet) withErr(err error) QuerySet {
	if qs.err == nil {
		qs.err = err
	}
	return qs
}

// Filter narrows the set to records matching all given predicates.
// Successive Filter calls conjoin:
//
//	eng.Query().
//	    Filter(lookup.Exact("region", record.String("eu-west-1"))).
//	    Filter(lookup.GTE("age", record.Int(21)))
//
// matches records satisfying both conditions.
func (qs QuerySet) Filter(preds ...lookup.Predicate) QuerySet {
	if len(preds) == 0 {
		return qs
	}
	qs.groups = append(slices.Clone(qs.groups), lookup.NewGroup(preds...))
	return qs
}

// Exclude narrows the set to records NOT matching all given predicates
// together. Like Django's exclude, several predicates in one call are
// negated as a unit: Exclude(a, b) drops records where a AND b hold,
// keeping records where either fails. To drop records matching any of
// several conditions, chain one Exclude per condition.
func (qs QuerySet) Exclude(preds ...lookup.Predicate) QuerySet {
	if len(preds) == 0 {
		return qs
	}
	qs.groups = append(slices.Clone(qs.groups), lookup.NewNegatedGroup(preds...))
	return qs
}

// OrderBy replaces the ordering with a stable multi-key sort over the
// given field paths, primary key first. A leading "-" orders that key
// descending:
//
//	qs.OrderBy("-age", "name")
//
// Null field values sort before any non-null value ascending, and
// therefore after all values descending. Calling OrderBy with no fields
// clears the ordering.
func (qs QuerySet) OrderBy(fields ...string) QuerySet {
	keys := make([]orderKey, 0, len(fields))
	for _, f := range fields {
		if path, ok := strings.CutPrefix(f, "-"); ok {
			keys = append(keys, orderKey{path: path, desc: true})
		} else {
			keys = append(keys, orderKey{path: f})
		}
	}
	qs.order = keys
	qs.reversed = false
	return qs
}

// Reverse inverts the direction of every ordering key. On an unordered
// set it reverses materialization order instead, so Reverse of an
// unordered query yields the source records back to front.
func (qs QuerySet) Reverse() QuerySet {
	if len(qs.order) == 0 {
		qs.reversed = !qs.reversed
		return qs
	}

	keys := slices.Clone(qs.order)
	for i := range keys {
		keys[i].desc = !keys[i].desc
	}
	qs.order = keys
	return qs
}

// Distinct drops duplicate results, keeping first-seen order. Two
// results are duplicates when their full field sets are equal, so under
// a projection equality is judged on the projected fields only.
func (qs QuerySet) Distinct() QuerySet {
	qs.distinct = true
	return qs
}

// None returns a set that evaluates to no results without ever touching
// the record source or populating the cache.
func (qs QuerySet) None() QuerySet {
	qs.none = true
	return qs
}

// window composes a [start, start+count) view onto the current one.
// count < 0 means unbounded.
func (qs QuerySet) window(start, count int) QuerySet {
	if start < 0 {
		start = 0
	}
	qs.offset += start

	if qs.limit < 0 {
		qs.limit = count
		return qs
	}

	avail := qs.limit - start
	if avail < 0 {
		avail = 0
	}
	if count < 0 || count > avail {
		count = avail
	}
	qs.limit = count
	return qs
}

// Slice bounds the result to the half-open window [start, end) of the
// ordered sequence, counting from the current window's origin. Slicing
// composes arithmetically without materializing:
//
//	qs.Slice(2, 7).Slice(3, 9) == qs.Slice(5, 7)
//
// Negative bounds clamp to zero and end < start yields an empty set.
// Slicing happens after filtering and ordering, so page boundaries are
// deterministic regardless of source order.
func (qs QuerySet) Slice(start, end int) QuerySet {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return qs.window(start, end-start)
}

// Limit bounds the result to its first n elements, like Slice(0, n).
func (qs QuerySet) Limit(n int) QuerySet {
	if n < 0 {
		n = 0
	}
	return qs.window(0, n)
}

// Offset skips the first n elements, like an end-less slice.
func (qs QuerySet) Offset(n int) QuerySet {
	return qs.window(n, -1)
}

// Values projects each result down to the given fields, yielding
// records that contain only those paths. With no fields the full record
// is kept. Dotted paths project the nested value under its full path:
//
//	qs.Values("name", "meta.owner")
//
// Missing fields resolve to null and are projected as explicit nulls.
func (qs QuerySet) Values(fields ...string) QuerySet {
	qs.proj = projectValues
	qs.fields = slices.Clone(fields)
	return qs
}

// ValuesList projects each result to a positional tuple of the given
// fields, in order. Results are retrieved with Tuples or, for a single
// field, Flat:
//
//	names, err := qs.ValuesList("name").Flat(ctx)
//
// At least one field is required.
func (qs QuerySet) ValuesList(fields ...string) QuerySet {
	if len(fields) == 0 {
		return qs.withErr(fmt.Errorf("%w: ValuesList requires at least one field", ErrInvalidProjection))
	}
	qs.proj = projectTuples
	qs.fields = slices.Clone(fields)
	return qs
}

// All evaluates the set and returns the final ordered, sliced,
// projected and deduplicated records. On a ValuesList set All fails;
// use Tuples or Flat there.
func (qs QuerySet) All(ctx context.Context) ([]record.Record, error) {
	if qs.proj == projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: All on a ValuesList set, use Tuples", ErrInvalidProjection))
	}
	res, err := qs.run(ctx)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// Iter evaluates the set and returns an iterator over the results.
// Evaluation is eager; the iterator exists for range-over-func
// ergonomics and early termination, not for streaming from the source:
//
//	for rec, err := range qs.Iter(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    process(rec)
//	}
func (qs QuerySet) Iter(ctx context.Context) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		recs, err := qs.All(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rec := range recs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Tuples evaluates a ValuesList set and returns the positional tuples.
func (qs QuerySet) Tuples(ctx context.Context) ([][]record.Value, error) {
	if qs.proj != projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: Tuples requires ValuesList", ErrInvalidProjection))
	}
	res, err := qs.run(ctx)
	if err != nil {
		return nil, err
	}
	return res.tuples, nil
}

// Flat evaluates a single-field ValuesList set and returns the values
// as a flat slice.
func (qs QuerySet) Flat(ctx context.Context) ([]record.Value, error) {
	if qs.proj != projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: Flat requires ValuesList", ErrInvalidProjection))
	} else if len(qs.fields) != 1 {
		qs = qs.withErr(fmt.Errorf("%w: Flat requires exactly one field, got %d", ErrInvalidProjection, len(qs.fields)))
	}
	res, err := qs.run(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]record.Value, len(res.tuples))
	for i, t := range res.tuples {
		out[i] = t[0]
	}
	return out, nil
}

// Count evaluates the set and returns the number of final results,
// after slicing and deduplication, so Count always equals the length of
// the sequence All or Tuples returns.
func (qs QuerySet) Count(ctx context.Context) (int, error) {
	res, err := qs.run(ctx)
	if err != nil {
		return 0, err
	}
	return res.len(), nil
}

// Exists reports whether the set evaluates to at least one result. It
// narrows the window to a single element first, so it does not pay for
// materializing the full result.
func (qs QuerySet) Exists(ctx context.Context) (bool, error) {
	res, err := qs.window(0, 1).run(ctx)
	if err != nil {
		return false, err
	}
	return res.len() > 0, nil
}

// First evaluates the set and returns its first result under the
// current ordering, or the source's materialization order when none is
// set. An empty result yields (nil, nil), never an error.
func (qs QuerySet) First(ctx context.Context) (record.Record, error) {
	if qs.proj == projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: First on a ValuesList set, use Tuples", ErrInvalidProjection))
	}
	res, err := qs.window(0, 1).run(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.records) == 0 {
		return nil, nil
	}
	return res.records[0], nil
}

// Last evaluates the set and returns its final result. Unlike First it
// cannot narrow the window, because deduplication keeps first-seen
// elements and may change which one ends up last. An empty result
// yields (nil, nil).
func (qs QuerySet) Last(ctx context.Context) (record.Record, error) {
	if qs.proj == projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: Last on a ValuesList set, use Tuples", ErrInvalidProjection))
	}
	res, err := qs.run(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.records) == 0 {
		return nil, nil
	}
	return res.records[len(res.records)-1], nil
}

// Get applies the given predicates on top of the chain and requires
// exactly one match: zero matches return ErrNotFound, several return
// ErrMultipleObjects carrying the count.
func (qs QuerySet) Get(ctx context.Context, preds ...lookup.Predicate) (record.Record, error) {
	if qs.proj == projectTuples {
		qs = qs.withErr(fmt.Errorf("%w: Get on a ValuesList set", ErrInvalidProjection))
	}
	res, err := qs.Filter(preds...).run(ctx)
	if err != nil {
		return nil, err
	}
	switch n := len(res.records); n {
	case 0:
		return nil, ErrNotFound
	case 1:
		return res.records[0], nil
	default:
		return nil, &ErrMultipleObjects{Count: n}
	}
}
