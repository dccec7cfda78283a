package lookup

import (
	"errors"
	"fmt"

	"github.com/hupe1980/querygo/record"
)

var (
	// ErrUnknownOperator is returned when resolving an unregistered operator name.
	ErrUnknownOperator = errors.New("unknown lookup operator")

	// ErrInvalidOperand is returned when an operand has the wrong kind for
	// its operator (e.g. a non-array operand for "in").
	ErrInvalidOperand = errors.New("invalid lookup operand")
)

// ErrTypeMismatch indicates an ordering comparison between values that are
// not mutually ordered (null always counts as unordered).
type ErrTypeMismatch struct {
	Operator    Operator
	FieldKind   record.Kind
	OperandKind record.Kind
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: %s cannot order %s against %s", e.Operator, e.FieldKind, e.OperandKind)
}
