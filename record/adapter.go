package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	gojson "github.com/goccy/go-json"
)

// FromAny converts a Go value into a typed Value.
//
// This exists as an adapter layer for user input and decoded JSON.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			// Avoid silently truncating large values.
			return Value{}, fmt.Errorf("record uint64 out of range: %d", x)
		}
		return Int(int64(x)), nil
	case time.Time:
		return Time(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("record number %q: %w", x.String(), err)
		}
		return Float(f), nil
	case []Value:
		return Array(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = vv
		}
		return Array(arr), nil
	case []string:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = String(x[i])
		}
		return Array(arr), nil
	case []int:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Int(int64(x[i]))
		}
		return Array(arr), nil
	case []float64:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Float(x[i])
		}
		return Array(arr), nil
	case Record:
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			obj[k] = e
		}
		return Object(obj), nil
	case map[string]Value:
		return Object(x), nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, e := range x {
			vv, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			obj[k] = vv
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("unsupported record value type %T", v)
	}
}

// FromMap converts a legacy map[string]any document to a typed Record.
func FromMap(m map[string]any) (Record, error) {
	r := make(Record, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, err
		}
		r[k] = vv
	}
	return r, nil
}

// FromMaps converts a slice of map[string]any documents to typed Records.
func FromMaps(ms []map[string]any) ([]Record, error) {
	records := make([]Record, len(ms))
	for i := range ms {
		r, err := FromMap(ms[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = r
	}
	return records, nil
}

// FromStruct converts an arbitrary struct (or anything JSON-encodable)
// into a Record via a JSON round trip.
//
// Integral numbers survive as KindInt; field names follow the value's
// JSON tags.
func FromStruct(v any) (Record, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return FromMap(m)
}

// FromStructs converts a slice of structs into Records.
func FromStructs[T any](vs []T) ([]Record, error) {
	records := make([]Record, len(vs))
	for i := range vs {
		r, err := FromStruct(vs[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = r
	}
	return records, nil
}
