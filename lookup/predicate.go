package lookup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/querygo/record"
)

// Predicate is a single field condition: a field path, an operator and an
// operand.
//
// The operator is resolved against a registry at construction time; an
// unknown name does not fail construction (chains stay lazy) but is
// surfaced as an error on first evaluation.
type Predicate struct {
	Path     string
	Operator Operator
	Operand  record.Value

	fn  Func
	err error
}

// Predicate constructs a predicate whose operator resolves against this
// registry.
func (r *Registry) Predicate(path string, op Operator, operand record.Value) Predicate {
	fn, err := r.Resolve(op)
	return Predicate{Path: path, Operator: op, Operand: operand, fn: fn, err: err}
}

// Parse constructs a predicate from a combined "path__operator" expression.
//
// The expression is split on the final "__"; if the suffix is not a
// registered operator the whole expression is treated as a field path with
// an implicit exact match. Field paths themselves use "." for nesting, so
// "profile.age__gte" filters on the nested age field.
func (r *Registry) Parse(expr string, operand record.Value) Predicate {
	path, op := splitExpr(r, expr)
	return r.Predicate(path, op, operand)
}

// New constructs a predicate against the Default registry.
func New(path string, op Operator, operand record.Value) Predicate {
	return Default.Predicate(path, op, operand)
}

// Parse constructs a predicate from a "path__operator" expression against
// the Default registry.
func Parse(expr string, operand record.Value) Predicate {
	return Default.Parse(expr, operand)
}

func splitExpr(r *Registry, expr string) (string, Operator) {
	if idx := strings.LastIndex(expr, "__"); idx >= 0 {
		if op := Operator(expr[idx+2:]); r.Has(op) {
			return expr[:idx], op
		}
	}
	return expr, OpExact
}

// Evaluate applies the predicate to a record.
//
// Lookup errors are wrapped with the offending path and operator so that a
// failing chain reports which condition broke.
func (p Predicate) Evaluate(rec record.Record) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	ok, err := p.fn(rec.Resolve(p.Path), p.Operand)
	if err != nil {
		return false, fmt.Errorf("%s__%s: %w", p.Path, p.Operator, err)
	}
	return ok, nil
}

// Err returns the construction error deferred by Predicate or Parse,
// or nil for a well-formed predicate. Evaluation would return the same
// error; Err lets callers surface it without a record in hand.
func (p Predicate) Err() error {
	return p.err
}

// Exact constructs an equality predicate.
func Exact(path string, operand record.Value) Predicate { return New(path, OpExact, operand) }

// IExact constructs a case-insensitive equality predicate.
func IExact(path string, operand record.Value) Predicate { return New(path, OpIExact, operand) }

// Contains constructs a substring predicate.
func Contains(path string, operand record.Value) Predicate { return New(path, OpContains, operand) }

// IContains constructs a case-insensitive substring predicate.
func IContains(path string, operand record.Value) Predicate { return New(path, OpIContains, operand) }

// In constructs a membership predicate; the operand must be an array value.
func In(path string, operand record.Value) Predicate { return New(path, OpIn, operand) }

// GT constructs a strictly-greater predicate.
func GT(path string, operand record.Value) Predicate { return New(path, OpGT, operand) }

// GTE constructs a greater-or-equal predicate.
func GTE(path string, operand record.Value) Predicate { return New(path, OpGTE, operand) }

// LT constructs a strictly-less predicate.
func LT(path string, operand record.Value) Predicate { return New(path, OpLT, operand) }

// LTE constructs a less-or-equal predicate.
func LTE(path string, operand record.Value) Predicate { return New(path, OpLTE, operand) }

// IsNull constructs a null-check predicate.
func IsNull(path string, want bool) Predicate { return New(path, OpIsNull, record.Bool(want)) }

// StartsWith constructs a prefix predicate.
func StartsWith(path string, operand record.Value) Predicate {
	return New(path, OpStartsWith, operand)
}

// IStartsWith constructs a case-insensitive prefix predicate.
func IStartsWith(path string, operand record.Value) Predicate {
	return New(path, OpIStartsWith, operand)
}

// EndsWith constructs a suffix predicate.
func EndsWith(path string, operand record.Value) Predicate { return New(path, OpEndsWith, operand) }

// IEndsWith constructs a case-insensitive suffix predicate.
func IEndsWith(path string, operand record.Value) Predicate {
	return New(path, OpIEndsWith, operand)
}

// Regex constructs a regular expression predicate.
func Regex(path string, operand record.Value) Predicate { return New(path, OpRegex, operand) }

// IRegex constructs a case-insensitive regular expression predicate.
func IRegex(path string, operand record.Value) Predicate { return New(path, OpIRegex, operand) }

// Group is a conjunction of predicates, optionally negated.
//
// A plain group matches when all its predicates match (AND); a negated
// group matches when the conjunction fails, which is how exclusion is
// expressed: NOT(p1 AND p2 AND ...).
type Group struct {
	preds   []Predicate
	negated bool
}

// NewGroup creates a conjunction group.
func NewGroup(preds ...Predicate) Group {
	return Group{preds: preds}
}

// NewNegatedGroup creates a negated conjunction group.
func NewNegatedGroup(preds ...Predicate) Group {
	return Group{preds: preds, negated: true}
}

// Negated reports whether the group inverts its conjunction.
func (g Group) Negated() bool { return g.negated }

// Predicates returns a copy of the group's predicates.
func (g Group) Predicates() []Predicate { return slices.Clone(g.preds) }

// Len returns the number of predicates in the group.
func (g Group) Len() int { return len(g.preds) }

// Match evaluates the group against a record.
//
// Evaluation short-circuits on the first non-matching predicate. An empty
// group is vacuously true (and therefore vacuously false when negated).
// Errors propagate immediately, negated or not.
func (g Group) Match(rec record.Record) (bool, error) {
	for _, p := range g.preds {
		ok, err := p.Evaluate(rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return g.negated, nil
		}
	}
	return !g.negated, nil
}
