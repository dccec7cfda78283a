package querygo

import (
	"errors"
	"testing"

	"github.com/hupe1980/querygo/lookup"
	"github.com/hupe1980/querygo/record"
)

func TestWindowComposition(t *testing.T) {
	tests := []struct {
		name   string
		build  func(QuerySet) QuerySet
		offset int
		limit  int
	}{
		{
			name:   "Unbounded",
			build:  func(qs QuerySet) QuerySet { return qs },
			offset: 0,
			limit:  -1,
		},
		{
			name:   "Slice",
			build:  func(qs QuerySet) QuerySet { return qs.Slice(2, 7) },
			offset: 2,
			limit:  5,
		},
		{
			name:   "SliceOfSlice",
			build:  func(qs QuerySet) QuerySet { return qs.Slice(2, 7).Slice(3, 9) },
			offset: 5,
			limit:  2,
		},
		{
			name:   "SliceWithinSlice",
			build:  func(qs QuerySet) QuerySet { return qs.Slice(2, 10).Slice(1, 3) },
			offset: 3,
			limit:  2,
		},
		{
			name:   "OffsetThenLimit",
			build:  func(qs QuerySet) QuerySet { return qs.Offset(3).Limit(2) },
			offset: 3,
			limit:  2,
		},
		{
			name:   "LimitThenOffsetPastEnd",
			build:  func(qs QuerySet) QuerySet { return qs.Limit(2).Offset(3) },
			offset: 3,
			limit:  0,
		},
		{
			name:   "NegativeStartClamps",
			build:  func(qs QuerySet) QuerySet { return qs.Slice(-5, 3) },
			offset: 0,
			limit:  3,
		},
		{
			name:   "EndBeforeStartIsEmpty",
			build:  func(qs QuerySet) QuerySet { return qs.Slice(5, 2) },
			offset: 5,
			limit:  0,
		},
		{
			name:   "NegativeLimitIsEmpty",
			build:  func(qs QuerySet) QuerySet { return qs.Limit(-1) },
			offset: 0,
			limit:  0,
		},
		{
			name:   "OffsetOfOffset",
			build:  func(qs QuerySet) QuerySet { return qs.Offset(2).Offset(3) },
			offset: 5,
			limit:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := tt.build(QuerySet{limit: -1})
			if qs.offset != tt.offset || qs.limit != tt.limit {
				t.Errorf("got offset=%d limit=%d, want offset=%d limit=%d", qs.offset, qs.limit, tt.offset, tt.limit)
			}
		})
	}
}

func TestOrderByParsing(t *testing.T) {
	qs := QuerySet{limit: -1}.OrderBy("-age", "name")

	if len(qs.order) != 2 {
		t.Fatalf("got %d order keys, want 2", len(qs.order))
	}
	if qs.order[0].path != "age" || !qs.order[0].desc {
		t.Errorf("first key = %+v, want age descending", qs.order[0])
	}
	if qs.order[1].path != "name" || qs.order[1].desc {
		t.Errorf("second key = %+v, want name ascending", qs.order[1])
	}

	if cleared := qs.OrderBy(); len(cleared.order) != 0 {
		t.Errorf("OrderBy() kept %d keys, want none", len(cleared.order))
	}
}

func TestReverseFlags(t *testing.T) {
	qs := QuerySet{limit: -1}

	rev := qs.Reverse()
	if !rev.reversed {
		t.Error("Reverse on unordered set did not set reversed")
	}
	if rev.Reverse().reversed {
		t.Error("double Reverse did not restore natural order")
	}

	ordered := qs.OrderBy("age").Reverse()
	if ordered.reversed {
		t.Error("Reverse on ordered set must flip keys, not the reversed flag")
	}
	if !ordered.order[0].desc {
		t.Error("Reverse did not flip the key direction")
	}

	reordered := qs.Reverse().OrderBy("age")
	if reordered.reversed {
		t.Error("OrderBy did not reset the reversed flag")
	}
}

func TestChainImmutability(t *testing.T) {
	base := QuerySet{limit: -1}.Filter(lookup.Exact("kind", record.String("base")))

	a := base.Filter(lookup.Exact("fork", record.String("a")))
	b := base.Filter(lookup.Exact("fork", record.String("b")))

	if len(base.groups) != 1 {
		t.Fatalf("base grew to %d groups", len(base.groups))
	}
	if len(a.groups) != 2 || len(b.groups) != 2 {
		t.Fatalf("forks have %d and %d groups, want 2 each", len(a.groups), len(b.groups))
	}

	// Forks off the same base must not share backing arrays.
	aOp := a.groups[1].Predicates()[0].Operand
	bOp := b.groups[1].Predicates()[0].Operand
	if !aOp.Equal(record.String("a")) || !bOp.Equal(record.String("b")) {
		t.Errorf("fork groups aliased: a=%v b=%v", aOp, bOp)
	}

	sliced := base.Slice(0, 10)
	if base.limit != -1 {
		t.Errorf("Slice mutated base limit to %d", base.limit)
	}
	if sliced.limit != 10 {
		t.Errorf("sliced limit = %d, want 10", sliced.limit)
	}

	ordered := base.OrderBy("name")
	_ = ordered.Reverse()
	if ordered.order[0].desc {
		t.Error("Reverse mutated the receiver's order keys")
	}
}

func TestChainErrorSticks(t *testing.T) {
	qs := QuerySet{limit: -1}.ValuesList()
	if qs.err == nil {
		t.Fatal("ValuesList with no fields did not record an error")
	}
	if !errors.Is(qs.err, ErrInvalidProjection) {
		t.Errorf("err = %v, want ErrInvalidProjection", qs.err)
	}

	// The first error survives further chaining and later errors do not
	// replace it.
	chained := qs.Filter(lookup.Exact("x", record.Int(1))).OrderBy("x").ValuesList()
	if !errors.Is(chained.err, ErrInvalidProjection) {
		t.Errorf("chained err = %v, want original ErrInvalidProjection", chained.err)
	}
}

func TestFilterEmptyIsNoop(t *testing.T) {
	base := QuerySet{limit: -1}
	if got := base.Filter(); len(got.groups) != 0 {
		t.Errorf("Filter() added %d groups", len(got.groups))
	}
	if got := base.Exclude(); len(got.groups) != 0 {
		t.Errorf("Exclude() added %d groups", len(got.groups))
	}
}
