// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	// ValueInvalid is the zero Value. It is never stored in a property bag.
	ValueInvalid ValueKind = iota

	// ValueInt holds an int64.
	ValueInt

	// ValueFloat holds a float64.
	ValueFloat

	// ValueString holds a string.
	ValueString

	// ValueBool holds a bool.
	ValueBool

	// ValueList holds a list of values that all share one kind.
	ValueList
)

var valueKindNames = map[ValueKind]string{
	ValueInvalid: "invalid",
	ValueInt:     "int",
	ValueFloat:   "float",
	ValueString:  "string",
	ValueBool:    "bool",
	ValueList:    "list",
}

// String returns the string representation of the ValueKind.
func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseValueKind is the inverse of ValueKind.String.
func ParseValueKind(s string) (ValueKind, bool) {
	for k, name := range valueKindNames {
		if name == s {
			return k, true
		}
	}
	return ValueInvalid, false
}

// Value is a property value: an int, float, string, bool or a list of
// values of one kind.
//
// Equality is exact and never coerces between kinds, so Int(2) does not
// equal Float(2).
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
	list []Value
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: ValueInt, i: v} }

// Float returns a floating point Value.
func Float(v float64) Value { return Value{kind: ValueFloat, f: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: ValueString, s: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: ValueBool, b: v} }

// List returns a list Value. All items must be valid and share one kind.
func List(items ...Value) (Value, error) {
	for i, item := range items {
		if item.kind == ValueInvalid {
			return Value{}, fmt.Errorf("%w: list item %d is empty", ErrInvalidValue, i)
		}
		if item.kind != items[0].kind {
			return Value{}, fmt.Errorf("%w: list mixes %s and %s", ErrInvalidValue, items[0].kind, item.kind)
		}
	}
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: ValueList, list: cp}, nil
}

// ValueOf converts a Go value to a Value.
//
// Description:
//
//	Accepts Value, bool, string, every signed and unsigned integer type,
//	float32, float64 and slices of those ([]any included). Unsigned
//	integers larger than math.MaxInt64 are rejected.
//
// Outputs:
//   - Value: The converted value.
//   - error: ErrInvalidValue for nil, unsupported types, or mixed lists.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		if x.kind == ValueInvalid {
			return Value{}, fmt.Errorf("%w: empty value", ErrInvalidValue)
		}
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
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
		return uintValue(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return uintValue(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []Value:
		return List(x...)
	case []any:
		return listOf(x)
	case []string:
		return listOf(x)
	case []int:
		return listOf(x)
	case []int64:
		return listOf(x)
	case []float64:
		return listOf(x)
	case []bool:
		return listOf(x)
	case nil:
		return Value{}, fmt.Errorf("%w: nil", ErrInvalidValue)
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, v)
	}
}

func uintValue(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d overflows int64", ErrInvalidValue, x)
	}
	return Int(int64(x)), nil
}

func listOf[T any](xs []T) (Value, error) {
	items := make([]Value, 0, len(xs))
	for _, x := range xs {
		item, err := ValueOf(x)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return List(items...)
}

// ParseValue interprets a façade argument.
//
// Rules, in order:
//   - "true" and "false" become Bool
//   - base-10 integers become Int
//   - decimal or exponent floats become Float
//   - text wrapped in double quotes becomes String without the quotes,
//     which is how a caller passes "2" as a string
//   - anything else becomes String verbatim
func ParseValue(s string) Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	// ParseFloat also accepts "inf" and "nan"; require a digit so such
	// words stay strings.
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return String(s[1 : len(s)-1])
	}
	return String(s)
}

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether v is the empty Value.
func (v Value) IsZero() bool { return v.kind == ValueInvalid }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == ValueInt }

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == ValueFloat }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == ValueString }

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsList returns a copy of the list payload.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != ValueList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// ElemKind returns the kind shared by the items of a list, or
// ValueInvalid for empty lists and non-lists.
func (v Value) ElemKind() ValueKind {
	if v.kind != ValueList || len(v.list) == 0 {
		return ValueInvalid
	}
	return v.list[0].kind
}

// Equal reports exact equality. Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueInt:
		return v.i == o.i
	case ValueFloat:
		return v.f == o.f
	case ValueString:
		return v.s == o.s
	case ValueBool:
		return v.b == o.b
	case ValueList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface returns the payload as a plain Go value: int64, float64,
// string, bool, []any, or nil for the empty Value.
func (v Value) Interface() any {
	switch v.kind {
	case ValueInt:
		return v.i
	case ValueFloat:
		return v.f
	case ValueString:
		return v.s
	case ValueBool:
		return v.b
	case ValueList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String formats the value for logs and search signatures.
func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueString:
		return v.s
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// signature is an unambiguous encoding used in memo keys, so that
// Int(2) and String("2") never share a cached result.
func (v Value) signature() string {
	switch v.kind {
	case ValueString:
		return strconv.Quote(v.s)
	case ValueFloat:
		s := v.String()
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case ValueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.signature()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return v.String()
	}
}

// MarshalJSON encodes the plain payload.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// MarshalYAML encodes the plain payload.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// Properties is a property bag.
type Properties map[string]Value

// PropertiesOf converts a plain map, such as one decoded from YAML or
// JSON, into Properties.
func PropertiesOf(m map[string]any) (Properties, error) {
	props := make(Properties, len(m))
	for k, raw := range m {
		if k == "" {
			return nil, fmt.Errorf("%w: empty property name", ErrInvalidArgument)
		}
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		props[k] = v
	}
	return props, nil
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy. Values are immutable, so this is a full copy.
func (p Properties) Clone() Properties {
	cp := make(Properties, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Map returns the bag as plain Go values.
func (p Properties) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

func (p Properties) validate() error {
	for k, v := range p {
		if k == "" {
			return fmt.Errorf("%w: empty property name", ErrInvalidArgument)
		}
		if v.IsZero() {
			return fmt.Errorf("%w: property %q has no value", ErrInvalidValue, k)
		}
	}
	return nil
}
