// Package jsonvalue is a read-only view over decoded JSON with typed,
// optional accessors. A missing key or index yields an absent Value whose
// accessors all report false, so lookups can be chained without checks.
package jsonvalue

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	Absent Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "absent"
	}
}

// Value is an immutable JSON value.
type Value struct {
	v       any
	present bool
}

// Parse decodes exactly one JSON document. Numbers keep their textual form so
// 64-bit ids survive.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("jsonvalue: unexpected data after top-level value")
		}
		return Value{}, err
	}
	return Wrap(v), nil
}

// Wrap converts the output of a json decoder (map[string]any, []any,
// json.Number, float64, string, bool, nil) into a Value. goccy's Number is an
// alias of encoding/json's, so either decoder's output is accepted.
func Wrap(v any) Value {
	return Value{v: v, present: true}
}

// Kind returns the JSON type of v.
func (v Value) Kind() Kind {
	if !v.present {
		return Absent
	}
	switch v.v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case json.Number, float64, int64, int:
		return Number
	case string:
		return String
	case []any:
		return Array
	case map[string]any:
		return Object
	default:
		return Absent
	}
}

// Exists reports whether v holds a value (including JSON null).
func (v Value) Exists() bool { return v.present }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.Kind() == Null }

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	s, ok := v.v.(string)
	return s, ok && v.present
}

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok && v.present
}

// Int returns v as an int64 when it is an integral number.
func (v Value) Int() (int64, bool) {
	if !v.present {
		return 0, false
	}
	switch n := v.v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Float returns v as a float64 when it is a number.
func (v Value) Float() (float64, bool) {
	if !v.present {
		return 0, false
	}
	switch n := v.v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Array returns the elements of v when it is an array.
func (v Value) Array() ([]Value, bool) {
	arr, ok := v.v.([]any)
	if !ok || !v.present {
		return nil, false
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = Wrap(e)
	}
	return out, true
}

// Object returns the members of v when it is an object.
func (v Value) Object() (map[string]Value, bool) {
	obj, ok := v.v.(map[string]any)
	if !ok || !v.present {
		return nil, false
	}
	out := make(map[string]Value, len(obj))
	for k, e := range obj {
		out[k] = Wrap(e)
	}
	return out, true
}

// Get returns the member named key, or an absent Value.
func (v Value) Get(key string) Value {
	obj, ok := v.v.(map[string]any)
	if !ok || !v.present {
		return Value{}
	}
	e, ok := obj[key]
	if !ok {
		return Value{}
	}
	return Wrap(e)
}

// Index returns the i-th array element, or an absent Value.
func (v Value) Index(i int) Value {
	arr, ok := v.v.([]any)
	if !ok || !v.present || i < 0 || i >= len(arr) {
		return Value{}
	}
	return Wrap(arr[i])
}

// Len returns the number of elements or members, 0 for scalars.
func (v Value) Len() int {
	switch c := v.v.(type) {
	case []any:
		return len(c)
	case map[string]any:
		return len(c)
	}
	return 0
}

// Interface returns the underlying decoded value.
func (v Value) Interface() any { return v.v }

// MarshalJSON encodes v back to JSON. An absent value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// String renders v as compact JSON, for logging and printing.
func (v Value) String() string {
	if !v.present {
		return "<absent>"
	}
	data, err := json.Marshal(v.v)
	if err != nil {
		return fmt.Sprintf("%v", v.v)
	}
	return string(data)
}
