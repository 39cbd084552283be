// Package model defines the dynamically-typed value kind shared by every
// APEX component: records submitted by callers, enrichment outputs, and
// expression results all flow through Value and Record.
package model

import (
	"fmt"
	"time"
)

// Kind identifies the dynamic type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindInstant
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindInstant:
		return "instant"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is the tagged union every field, variable, and expression result is
// represented as. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	integer int64
	float   float64
	str     string
	instant time.Time
	list    []Value
	record  *Record
}

// Null is the canonical null value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value        { return Value{kind: KindBool, boolean: b} }
func Int(i int64) Value        { return Value{kind: KindInt, integer: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, float: f} }
func String(s string) Value    { return Value{kind: KindString, str: s} }
func Instant(t time.Time) Value { return Value{kind: KindInstant, instant: t} }
func List(items []Value) Value { return Value{kind: KindList, list: items} }
func FromRecord(r *Record) Value {
	if r == nil {
		return Null
	}
	return Value{kind: KindRecord, record: r}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool          { return v.boolean }
func (v Value) Int() int64         { return v.integer }
func (v Value) Float64() float64   { return v.float }
func (v Value) Str() string        { return v.str }
func (v Value) Time() time.Time    { return v.instant }
func (v Value) Items() []Value     { return v.list }
func (v Value) Record() *Record    { return v.record }

// AsFloat widens an int or float Value to float64. It panics if called on a
// non-numeric Value; callers must check Kind first (mirrors the expression
// evaluator's own numeric-promotion gate).
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.float
	case KindInt:
		return float64(v.integer)
	default:
		panic(fmt.Sprintf("model: AsFloat on non-numeric kind %s", v.kind))
	}
}

func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Truthy coerces a Value to bool the way the rule evaluator's result
// coercion does (§4.5): null is false, booleans pass through, anything else
// non-null is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.boolean
	default:
		return true
	}
}

// Equal implements the expression engine's `==` semantics: null equals null
// only; an int and a float compare by numeric value; otherwise values are
// equal iff same kind and same content.
func (v Value) Equal(other Value) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return v.kind == KindNull && other.kind == KindNull
	}
	if v.kind != other.kind {
		if v.IsNumeric() && other.IsNumeric() {
			return v.AsFloat() == other.AsFloat()
		}
		return false
	}
	switch v.kind {
	case KindBool:
		return v.boolean == other.boolean
	case KindInt:
		return v.integer == other.integer
	case KindFloat:
		return v.float == other.float
	case KindString:
		return v.str == other.str
	case KindInstant:
		return v.instant.Equal(other.instant)
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		return v.record == other.record
	default:
		return false
	}
}

// Native converts a Value back into a plain Go value (map[string]any,
// []any, string, float64, int64, bool, time.Time, or nil), useful at
// package boundaries (JSON encoding, test fixtures).
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolean
	case KindInt:
		return v.integer
	case KindFloat:
		return v.float
	case KindString:
		return v.str
	case KindInstant:
		return v.instant
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindRecord:
		return v.record.Native()
	default:
		return nil
	}
}

// FromNative converts a plain Go value into a Value, the inverse of
// Native. Unsupported types produce null (APEX never panics on ingress).
func FromNative(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case string:
		return String(t)
	case time.Time:
		return Instant(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromNative(item)
		}
		return List(items)
	case []Value:
		return List(t)
	case map[string]any:
		return FromRecord(RecordFromNative(t))
	case *Record:
		return FromRecord(t)
	case Record:
		return FromRecord(&t)
	default:
		return Null
	}
}
