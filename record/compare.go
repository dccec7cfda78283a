package record

import "strings"

// Equal compares two values for equality.
//
// Numeric values compare across kinds (Int(2) equals Float(2.0)); all other
// kinds must match exactly. Null equals null.
func (v Value) Equal(o Value) bool {
	if v.IsNull() && o.IsNull() {
		return true
	}
	if v.IsNull() || o.IsNull() {
		return false
	}

	if isNumber(v) && isNumber(o) {
		// Prefer exact int compare when possible.
		if v.Kind == KindInt && o.Kind == KindInt {
			return v.I64 == o.I64
		}
		return asFloat64(v) == asFloat64(o)
	}

	if v.Kind != o.Kind {
		return false
	}

	switch v.Kind {
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.B == o.B
	case KindTime:
		return v.I64 == o.I64
	case KindArray:
		if len(v.A) != len(o.A) {
			return false
		}
		for i := range v.A {
			if !v.A[i].Equal(o.A[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.O) != len(o.O) {
			return false
		}
		for k, e := range v.O {
			other, ok := o.O[k]
			if !ok || !e.Equal(other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CompareOrdered compares two mutually ordered values.
//
// It returns -1, 0 or +1 and ok=true when the pair is ordered: numerics
// against numerics (int and float mix), strings against strings (byte
// order), bools against bools (false < true) and times against times.
// Null, arrays, objects and cross-kind pairs are not ordered and report
// ok=false.
func CompareOrdered(a, b Value) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}

	if isNumber(a) && isNumber(b) {
		if a.Kind == KindInt && b.Kind == KindInt {
			return compareInt64(a.I64, b.I64), true
		}
		return compareFloat64(asFloat64(a), asFloat64(b)), true
	}

	if a.Kind != b.Kind {
		return 0, false
	}

	switch a.Kind {
	case KindString:
		return strings.Compare(a.s.Value(), b.s.Value()), true
	case KindBool:
		return compareBool(a.B, b.B), true
	case KindTime:
		return compareInt64(a.I64, b.I64), true
	default:
		return 0, false
	}
}

// CompareSort compares two values under the total sort order.
//
// Unlike CompareOrdered it never fails: values order first by kind rank
// (null < bool < numeric < time < string < array < object), then within a
// rank. Strings compare case-insensitively with a case-sensitive tie break
// so the order stays deterministic. Arrays compare elementwise, objects by
// their canonical key.
func CompareSort(a, b Value) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		return compareInt64(int64(ra), int64(rb))
	}

	switch {
	case a.IsNull():
		return 0
	case a.Kind == KindBool:
		return compareBool(a.B, b.B)
	case isNumber(a):
		if a.Kind == KindInt && b.Kind == KindInt {
			return compareInt64(a.I64, b.I64)
		}
		return compareFloat64(asFloat64(a), asFloat64(b))
	case a.Kind == KindTime:
		return compareInt64(a.I64, b.I64)
	case a.Kind == KindString:
		as, bs := a.s.Value(), b.s.Value()
		if c := strings.Compare(strings.ToLower(as), strings.ToLower(bs)); c != 0 {
			return c
		}
		return strings.Compare(as, bs)
	case a.Kind == KindArray:
		n := min(len(a.A), len(b.A))
		for i := 0; i < n; i++ {
			if c := CompareSort(a.A[i], b.A[i]); c != 0 {
				return c
			}
		}
		return compareInt64(int64(len(a.A)), int64(len(b.A)))
	default:
		return strings.Compare(a.Key(), b.Key())
	}
}

func sortRank(v Value) int {
	switch v.Kind {
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindTime:
		return 3
	case KindString:
		return 4
	case KindArray:
		return 5
	case KindObject:
		return 6
	default:
		// Null and invalid sort first.
		return 0
	}
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func asFloat64(v Value) float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I64)
	case KindFloat:
		return v.F64
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	default:
		return 0
	}
}
