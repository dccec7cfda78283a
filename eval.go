package querygo

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/querygo/index"
	"github.com/hupe1980/querygo/record"
)

// evalResult carries evaluated results in the shape the projection
// chose: records for plain and Values sets, tuples for ValuesList.
type evalResult struct {
	mode    projection
	records []record.Record
	tuples  [][]record.Value
}

func (r evalResult) len() int {
	if r.mode == projectTuples {
		return len(r.tuples)
	}
	return len(r.records)
}

// run evaluates the set and funnels the outcome through the engine's
// metrics collector and logger. Every terminal operation goes through
// here.
func (qs QuerySet) run(ctx context.Context) (evalResult, error) {
	start := time.Now()
	res, err := qs.eval(ctx)
	duration := time.Since(start)
	qs.eng.metrics.RecordQuery(duration, res.len(), err)
	qs.eng.logger.LogQuery(ctx, res.len(), duration, err)
	return res, err
}

// eval applies the stage pipeline in fixed order: filter, order, slice,
// project, dedup. Slicing after ordering keeps pagination deterministic
// regardless of storage order, and running distinct last means equality
// is judged on the projected shape.
func (qs QuerySet) eval(ctx context.Context) (evalResult, error) {
	out := evalResult{mode: qs.proj}

	if qs.err != nil {
		return out, qs.err
	}
	if qs.none {
		return out, nil
	}
	if err := qs.validate(); err != nil {
		return out, err
	}

	records, _, fetchedAt, err := qs.eng.fetch(ctx)
	if err != nil {
		return out, err
	}

	rows, err := qs.matchStage(records, qs.eng.indexFor(records, fetchedAt))
	if err != nil {
		return out, err
	}

	rows = qs.orderStage(rows)
	rows = qs.sliceStage(rows)

	if qs.proj == projectTuples {
		out.tuples = qs.tupleStage(rows)
		if qs.distinct {
			out.tuples = dedupTuples(out.tuples)
		}
		return out, nil
	}

	out.records = qs.projectStage(rows)
	if qs.distinct {
		out.records = dedupRecords(out.records)
	}
	return out, nil
}

// validate surfaces predicate construction errors (unknown operators)
// before any record is touched. Doing this upfront keeps the error
// independent of which rows the scan happens to evaluate: a short
// circuit or an index narrowing to zero candidates must not hide a
// malformed chain.
func (qs QuerySet) validate() error {
	for _, g := range qs.groups {
		for _, p := range g.Predicates() {
			if err := p.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchStage filters records through every group, preserving source
// order. When an inverted index is available and a group can consult
// it, the scan is bounded to the candidate rows; every group is still
// evaluated per candidate, so acceleration never changes results.
func (qs QuerySet) matchStage(records []record.Record, ix *index.Inverted) ([]record.Record, error) {
	if len(qs.groups) == 0 {
		return records, nil
	}

	if ix != nil {
		for _, g := range qs.groups {
			if cand, ok := ix.Candidates(g); ok {
				return qs.matchRows(records, cand)
			}
		}
	}

	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		ok, err := qs.match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// matchRows evaluates the groups against the candidate rows only. The
// bitmap iterator yields ascending positions, so source order is
// preserved.
func (qs QuerySet) matchRows(records []record.Record, cand *roaring.Bitmap) ([]record.Record, error) {
	out := make([]record.Record, 0, cand.GetCardinality())
	it := cand.Iterator()
	for it.HasNext() {
		rec := records[it.Next()]
		ok, err := qs.match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (qs QuerySet) match(rec record.Record) (bool, error) {
	for _, g := range qs.groups {
		ok, err := g.Match(rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// orderStage sorts by the ordering keys, stable and primary key first.
// Null values rank below everything ascending and above everything
// descending. The input is cloned before sorting; it may alias the
// cache's record slice, which concurrent queries share.
func (qs QuerySet) orderStage(rows []record.Record) []record.Record {
	if len(qs.order) == 0 {
		if qs.reversed {
			rows = slices.Clone(rows)
			slices.Reverse(rows)
		}
		return rows
	}

	rows = slices.Clone(rows)
	slices.SortStableFunc(rows, func(a, b record.Record) int {
		for _, k := range qs.order {
			c := record.CompareSort(a.Resolve(k.path), b.Resolve(k.path))
			if c == 0 {
				continue
			}
			if k.desc {
				return -c
			}
			return c
		}
		return 0
	})
	return rows
}

func (qs QuerySet) sliceStage(rows []record.Record) []record.Record {
	if qs.offset > 0 {
		if qs.offset >= len(rows) {
			return nil
		}
		rows = rows[qs.offset:]
	}
	if qs.limit >= 0 && qs.limit < len(rows) {
		rows = rows[:qs.limit]
	}
	return rows
}

// projectStage materializes the output records. Rows are cloned even
// without a Values projection so callers can mutate results without
// corrupting cached records.
func (qs QuerySet) projectStage(rows []record.Record) []record.Record {
	out := make([]record.Record, 0, len(rows))
	if qs.proj == projectValues && len(qs.fields) > 0 {
		for _, rec := range rows {
			out = append(out, rec.Project(qs.fields))
		}
		return out
	}
	for _, rec := range rows {
		out = append(out, rec.Clone())
	}
	return out
}

func (qs QuerySet) tupleStage(rows []record.Record) [][]record.Value {
	out := make([][]record.Value, 0, len(rows))
	for _, rec := range rows {
		tuple := make([]record.Value, len(qs.fields))
		for i, f := range qs.fields {
			tuple[i] = rec.Resolve(f)
		}
		out = append(out, tuple)
	}
	return out
}

func dedupRecords(rows []record.Record) []record.Record {
	seen := make(map[string]struct{}, len(rows))
	out := make([]record.Record, 0, len(rows))
	for _, rec := range rows {
		k := rec.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func dedupTuples(rows [][]record.Value) [][]record.Value {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]record.Value, 0, len(rows))
	for _, tuple := range rows {
		parts := make([]string, len(tuple))
		for i, v := range tuple {
			parts[i] = v.Key()
		}
		k := strings.Join(parts, "\x1f")
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, tuple)
	}
	return out
}
