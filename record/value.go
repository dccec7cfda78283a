package record

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unique"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a point-in-time value.
	KindTime
	// KindArray represents an array value.
	KindArray
	// KindObject represents a nested object value.
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a small typed value used for records and lookup operands.
//
// The representation is designed to make filtering fast and predictable:
// no reflection and no fmt-based stringification.
//
// NOTE: This is also used for persistence; keep it stable.
type Value struct {
	Kind Kind                  `json:"k"`
	I64  int64                 `json:"i,omitempty"`
	F64  float64               `json:"f,omitempty"`
	s    unique.Handle[string] `json:"-"` // Private interned string
	B    bool                  `json:"b,omitempty"`
	A    []Value               `json:"a,omitempty"`
	O    map[string]Value      `json:"o,omitempty"`
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, s: unique.Make(v)} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Time returns a point-in-time Value.
//
// The instant is stored with nanosecond precision in UTC; the original
// location is not preserved.
func Time(v time.Time) Value { return Value{Kind: KindTime, I64: v.UnixNano()} }

// Array returns an array Value.
func Array(v []Value) Value { return Value{Kind: KindArray, A: v} }

// Object returns a nested object Value.
func Object(v map[string]Value) Value { return Value{Kind: KindObject, O: v} }

// IsNull reports whether the value is null. Invalid (zero) values count as
// null so that unresolved fields behave like missing attributes.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || v.Kind == KindInvalid
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the float64 value if Kind is KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.F64, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.s.Value(), true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsTime returns the time value if Kind is KindTime.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != KindTime {
		return time.Time{}, false
	}
	return time.Unix(0, v.I64).UTC(), true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsObject returns the object value if Kind is KindObject.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.O, true
}

// StringValue returns the string value if Kind is KindString, otherwise empty string.
func (v Value) StringValue() string {
	if v.Kind == KindString {
		return v.s.Value()
	}
	return ""
}

// CanonicalString returns the coerced string form of the value.
//
// This is the contract used by string lookups (contains, startswith, ...)
// when the field value is not itself a string:
//
//	Null    -> ""
//	Int     -> base-10 digits
//	Float   -> shortest decimal form (strconv 'g')
//	Bool    -> "true" / "false"
//	Time    -> RFC 3339 with nanoseconds, UTC
//	String  -> the string itself
//	Array   -> compact JSON
//	Object  -> compact JSON
func (v Value) CanonicalString() string {
	switch v.Kind {
	case KindString:
		return v.s.Value()
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindTime:
		return time.Unix(0, v.I64).UTC().Format(time.RFC3339Nano)
	case KindArray, KindObject:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// Key returns a stable string representation for use in maps.
//
// It is intended for internal indexing (inverted indexes, distinct) and must
// remain stable across versions for persisted snapshot usage.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.s.Value()
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindTime:
		return "t:" + strconv.FormatInt(v.I64, 10)
	case KindArray:
		if len(v.A) == 0 {
			return "a:"
		}
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	case KindObject:
		if len(v.O) == 0 {
			return "o:"
		}
		names := make([]string, 0, len(v.O))
		for name := range v.O {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + "\x1e" + v.O[name].Key()
		}
		return "o:" + strings.Join(parts, "\x1f")
	default:
		return "invalid"
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	type Alias Value
	aux := &struct {
		S string `json:"s,omitempty"`
		T string `json:"t,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(&v),
	}
	switch v.Kind {
	case KindString:
		aux.S = v.s.Value()
	case KindTime:
		aux.T = time.Unix(0, v.I64).UTC().Format(time.RFC3339Nano)
		aux.Alias.I64 = 0
	}
	return json.Marshal(aux)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	type Alias Value
	aux := &struct {
		S string `json:"s,omitempty"`
		T string `json:"t,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(v),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch v.Kind {
	case KindString:
		v.s = unique.Make(aux.S)
	case KindTime:
		if aux.T != "" {
			t, err := time.Parse(time.RFC3339Nano, aux.T)
			if err != nil {
				return err
			}
			v.I64 = t.UnixNano()
		}
	}
	return nil
}

// clone creates a deep copy of a Value, including nested arrays and objects.
func (v Value) clone() Value {
	switch {
	case v.Kind == KindArray && len(v.A) > 0:
		arrayCopy := make([]Value, len(v.A))
		for i := range v.A {
			arrayCopy[i] = v.A[i].clone()
		}
		v.A = arrayCopy
	case v.Kind == KindObject && len(v.O) > 0:
		objectCopy := make(map[string]Value, len(v.O))
		for k, e := range v.O {
			objectCopy[k] = e.clone()
		}
		v.O = objectCopy
	}
	// Simple values are copied by value semantics
	return v
}
