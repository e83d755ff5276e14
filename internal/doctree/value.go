// Package doctree provides the staged, typed tree-of-nodes model that form
// documents are built from: immutable committed snapshots (NodeState), a
// mutable staged view layered on top of them (Builder), and typed property
// values that normalize scalar and array-valued reads.
package doctree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the declared storage type of a property value.
type Type int

const (
	TypeString Type = iota
	TypeLong
	TypeDouble
	TypeDecimal
	TypeBoolean
	TypeDate
)

// DateFormat is the ISO-8601 offset format used for all persisted dates.
const DateFormat = "2006-01-02T15:04:05.000Z07:00"

func (t Type) String() string {
	switch t {
	case TypeLong:
		return "long"
	case TypeDouble:
		return "double"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	default:
		return "string"
	}
}

// TypeFromName is the inverse of Type.String. Unknown names map to string.
func TypeFromName(name string) Type {
	switch name {
	case "long":
		return TypeLong
	case "double":
		return TypeDouble
	case "decimal":
		return TypeDecimal
	case "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	default:
		return TypeString
	}
}

// Value is a typed property value, either a single scalar or an array of
// scalars of the same type. The zero Value is an empty string scalar.
type Value struct {
	typ   Type
	array bool
	vals  []any
}

func String(s string) Value  { return Value{typ: TypeString, vals: []any{s}} }
func Long(v int64) Value     { return Value{typ: TypeLong, vals: []any{v}} }
func Double(v float64) Value { return Value{typ: TypeDouble, vals: []any{v}} }
func Bool(v bool) Value      { return Value{typ: TypeBoolean, vals: []any{v}} }
func Date(t time.Time) Value { return Value{typ: TypeDate, vals: []any{t}} }

func Decimal(d decimal.Decimal) Value {
	return Value{typ: TypeDecimal, vals: []any{d}}
}

// Strings builds an array-valued string property. An empty slice is a valid
// empty array, not a missing value.
func Strings(ss []string) Value {
	vals := make([]any, len(ss))
	for i, s := range ss {
		vals[i] = s
	}
	return Value{typ: TypeString, array: true, vals: vals}
}

// Array builds an array value of the given type from already-typed scalars.
func Array(t Type, items []any) Value {
	vals := make([]any, len(items))
	copy(vals, items)
	return Value{typ: t, array: true, vals: vals}
}

// Scalar builds a single-valued Value of the given type from an
// already-typed scalar.
func Scalar(t Type, item any) Value {
	return Value{typ: t, vals: []any{item}}
}

func (v Value) Type() Type    { return v.typ }
func (v Value) IsArray() bool { return v.array }
func (v Value) Len() int      { return len(v.vals) }

// Raw returns the scalar for single values, or a fresh []any for arrays.
func (v Value) Raw() any {
	if v.array {
		out := make([]any, len(v.vals))
		copy(out, v.vals)
		return out
	}
	if len(v.vals) == 0 {
		return nil
	}
	return v.vals[0]
}

// First returns the first element, or nil for an empty array.
func (v Value) First() any {
	if len(v.vals) == 0 {
		return nil
	}
	return v.vals[0]
}

func (v Value) AsString() (string, bool) {
	s, ok := v.First().(string)
	return s, ok
}

func (v Value) AsLong() (int64, bool) {
	n, ok := v.First().(int64)
	return n, ok
}

func (v Value) AsDouble() (float64, bool) {
	f, ok := v.First().(float64)
	return f, ok
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.First().(bool)
	return b, ok
}

func (v Value) AsDate() (time.Time, bool) {
	t, ok := v.First().(time.Time)
	return t, ok
}

func (v Value) AsDecimal() (decimal.Decimal, bool) {
	d, ok := v.First().(decimal.Decimal)
	return d, ok
}

// FormatScalar renders a single typed scalar the way it is persisted:
// integers and floats in their natural form, dates in ISO-8601 offset
// format, decimals exactly.
func FormatScalar(item any) string {
	switch s := item.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(DateFormat)
	case decimal.Decimal:
		return s.String()
	default:
		return fmt.Sprintf("%v", s)
	}
}

// ParseScalar converts a raw string into a typed scalar for the given type.
func ParseScalar(t Type, raw string) (any, error) {
	switch t {
	case TypeLong:
		return strconv.ParseInt(raw, 10, 64)
	case TypeDouble:
		return strconv.ParseFloat(raw, 64)
	case TypeDecimal:
		return decimal.NewFromString(raw)
	case TypeBoolean:
		return strconv.ParseBool(raw)
	case TypeDate:
		if ts, err := time.Parse(DateFormat, raw); err == nil {
			return ts, nil
		}
		return time.Parse(time.RFC3339, raw)
	default:
		return raw, nil
	}
}
