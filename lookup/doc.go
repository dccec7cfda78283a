// Package lookup implements field predicates and the operator registry
// behind them.
//
// Operators are looked up by name in a Registry; the built-in table covers
// exact/iexact, contains/icontains, in, gt/gte/lt/lte, isnull,
// startswith/endswith (plus case-insensitive variants) and regex/iregex.
// Custom operators register under their own names and become available to
// Parse expressions like "age__gte".
//
// Semantics worth knowing:
//
//   - Ordering operators (gt, gte, lt, lte) fail with ErrTypeMismatch when
//     the field and operand are not mutually ordered; null is never
//     ordered.
//   - String operators coerce the field through its canonical string form,
//     so Int(42) startswith "4" matches; the operand must be a string.
//   - isnull treats only null or missing fields as null. Empty strings are
//     values, not nulls.
package lookup
