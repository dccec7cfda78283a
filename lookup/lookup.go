package lookup

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/querygo/record"
)

// Operator names a comparison operator for filtering.
type Operator string

const (
	// OpExact matches on equality (numeric kinds compare across int/float).
	OpExact Operator = "exact"
	// OpIExact matches on case-insensitive string equality.
	OpIExact Operator = "iexact"
	// OpContains matches when the field contains the operand substring.
	OpContains Operator = "contains"
	// OpIContains is the case-insensitive variant of OpContains.
	OpIContains Operator = "icontains"
	// OpIn matches when the field equals any element of the operand array.
	OpIn Operator = "in"
	// OpGT matches when the field is strictly greater than the operand.
	OpGT Operator = "gt"
	// OpGTE matches when the field is greater than or equal to the operand.
	OpGTE Operator = "gte"
	// OpLT matches when the field is strictly less than the operand.
	OpLT Operator = "lt"
	// OpLTE matches when the field is less than or equal to the operand.
	OpLTE Operator = "lte"
	// OpIsNull matches on null-ness of the field (operand must be a bool).
	OpIsNull Operator = "isnull"
	// OpStartsWith matches when the field starts with the operand prefix.
	OpStartsWith Operator = "startswith"
	// OpIStartsWith is the case-insensitive variant of OpStartsWith.
	OpIStartsWith Operator = "istartswith"
	// OpEndsWith matches when the field ends with the operand suffix.
	OpEndsWith Operator = "endswith"
	// OpIEndsWith is the case-insensitive variant of OpEndsWith.
	OpIEndsWith Operator = "iendswith"
	// OpRegex matches the field against the operand regular expression.
	OpRegex Operator = "regex"
	// OpIRegex is the case-insensitive variant of OpRegex.
	OpIRegex Operator = "iregex"
)

// Func evaluates a single field value against an operand.
//
// String operators coerce non-string fields through
// record.Value.CanonicalString (null coerces to ""); the operand itself
// must already have the kind the operator expects.
type Func func(field, operand record.Value) (bool, error)

// Registry maps operator names to their implementations.
//
// A Registry is safe for concurrent use. Registering under an existing
// name replaces the previous implementation.
type Registry struct {
	mu  sync.RWMutex
	fns map[Operator]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[Operator]Func)}
}

// DefaultRegistry creates a registry preloaded with the built-in operators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(OpExact, exact)
	r.Register(OpIExact, iexact)
	r.Register(OpContains, contains)
	r.Register(OpIContains, icontains)
	r.Register(OpIn, in)
	r.Register(OpGT, ordered(OpGT, func(c int) bool { return c > 0 }))
	r.Register(OpGTE, ordered(OpGTE, func(c int) bool { return c >= 0 }))
	r.Register(OpLT, ordered(OpLT, func(c int) bool { return c < 0 }))
	r.Register(OpLTE, ordered(OpLTE, func(c int) bool { return c <= 0 }))
	r.Register(OpIsNull, isnull)
	r.Register(OpStartsWith, startswith)
	r.Register(OpIStartsWith, istartswith)
	r.Register(OpEndsWith, endswith)
	r.Register(OpIEndsWith, iendswith)
	r.Register(OpRegex, regex)
	r.Register(OpIRegex, iregex)
	return r
}

// Default is the registry used by the package-level predicate constructors.
// Custom operators registered here are visible to every engine that did not
// configure its own registry.
var Default = DefaultRegistry()

// Register adds or replaces an operator implementation.
func (r *Registry) Register(op Operator, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[op] = fn
}

// Resolve returns the implementation for the given operator name.
// Unknown names yield an error wrapping ErrUnknownOperator that lists the
// registered operators.
func (r *Registry) Resolve(op Operator) (Func, error) {
	r.mu.RLock()
	fn, ok := r.fns[op]
	r.mu.RUnlock()

	if !ok {
		known := r.Operators()
		names := make([]string, len(known))
		for i, k := range known {
			names[i] = string(k)
		}
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownOperator, op, strings.Join(names, ", "))
	}
	return fn, nil
}

// Has reports whether the operator name is registered.
func (r *Registry) Has(op Operator) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fns[op]
	return ok
}

// Operators returns the registered operator names in sorted order.
func (r *Registry) Operators() []Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operator, 0, len(r.fns))
	for op := range r.fns {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

func exact(field, operand record.Value) (bool, error) {
	return field.Equal(operand), nil
}

func iexact(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpIExact, record.KindString, operand)
	}
	return strings.EqualFold(field.CanonicalString(), s), nil
}

func contains(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpContains, record.KindString, operand)
	}
	return strings.Contains(field.CanonicalString(), s), nil
}

func icontains(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpIContains, record.KindString, operand)
	}
	return strings.Contains(strings.ToLower(field.CanonicalString()), strings.ToLower(s)), nil
}

func in(field, operand record.Value) (bool, error) {
	arr, ok := operand.AsArray()
	if !ok {
		return false, operandKindError(OpIn, record.KindArray, operand)
	}
	for _, item := range arr {
		if field.Equal(item) {
			return true, nil
		}
	}
	return false, nil
}

func ordered(op Operator, match func(c int) bool) Func {
	return func(field, operand record.Value) (bool, error) {
		c, ok := record.CompareOrdered(field, operand)
		if !ok {
			return false, &ErrTypeMismatch{
				Operator:    op,
				FieldKind:   field.Kind,
				OperandKind: operand.Kind,
			}
		}
		return match(c), nil
	}
}

func isnull(field, operand record.Value) (bool, error) {
	want, ok := operand.AsBool()
	if !ok {
		return false, operandKindError(OpIsNull, record.KindBool, operand)
	}
	return field.IsNull() == want, nil
}

func startswith(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpStartsWith, record.KindString, operand)
	}
	return strings.HasPrefix(field.CanonicalString(), s), nil
}

func istartswith(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpIStartsWith, record.KindString, operand)
	}
	return strings.HasPrefix(strings.ToLower(field.CanonicalString()), strings.ToLower(s)), nil
}

func endswith(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpEndsWith, record.KindString, operand)
	}
	return strings.HasSuffix(field.CanonicalString(), s), nil
}

func iendswith(field, operand record.Value) (bool, error) {
	s, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpIEndsWith, record.KindString, operand)
	}
	return strings.HasSuffix(strings.ToLower(field.CanonicalString()), strings.ToLower(s)), nil
}

func regex(field, operand record.Value) (bool, error) {
	pattern, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpRegex, record.KindString, operand)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return re.MatchString(field.CanonicalString()), nil
}

func iregex(field, operand record.Value) (bool, error) {
	pattern, ok := operand.AsString()
	if !ok {
		return false, operandKindError(OpIRegex, record.KindString, operand)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return re.MatchString(field.CanonicalString()), nil
}

func operandKindError(op Operator, want record.Kind, operand record.Value) error {
	return fmt.Errorf("%w: %s requires a %s operand, got %s", ErrInvalidOperand, op, want, operand.Kind)
}
