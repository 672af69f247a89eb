// Package mjfield holds the typed field values that spans and
// events carry and the visitor that writes them as JSON.
package mjfield

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

type Kind uint8

const (
	KindBool Kind = iota
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindDebug
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "i64"
	case KindUint64:
		return "u64"
	case KindFloat64:
		return "f64"
	case KindString:
		return "str"
	case KindDebug:
		return "debug"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one recorded field value. Numbers are kept in num;
// text, debug renderings and error messages in str. Errors that
// wrap other errors keep the rendered chain in source.
type Value struct {
	kind   Kind
	num    uint64
	str    string
	source string
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool       { return v.num != 0 }
func (v Value) Int64() int64     { return int64(v.num) }
func (v Value) Uint64() uint64   { return v.num }
func (v Value) Float64() float64 { return math.Float64frombits(v.num) }

// Str returns the text of String, Debug and Error values.
func (v Value) Str() string { return v.str }

// Source returns the rendered cause chain of an Error value,
// empty when the error wraps nothing.
func (v Value) Source() string { return v.source }

func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

func Int64Value(i int64) Value     { return Value{kind: KindInt64, num: uint64(i)} }
func Uint64Value(u uint64) Value   { return Value{kind: KindUint64, num: u} }
func Float64Value(f float64) Value { return Value{kind: KindFloat64, num: math.Float64bits(f)} }
func StringValue(s string) Value   { return Value{kind: KindString, str: s} }

// DebugValue renders v with %+v now, so later changes to v are
// not observed.
func DebugValue(v interface{}) Value {
	return Value{kind: KindDebug, str: fmt.Sprintf("%+v", v)}
}

// DebugStringValue is for callers that have already rendered the value.
func DebugStringValue(s string) Value { return Value{kind: KindDebug, str: s} }

// ErrorValue records err.Error() and, as the source, the messages
// of wrapped errors that err.Error() does not already include,
// outermost first, joined by ": ". Errors made with fmt.Errorf's
// %w or errors.Wrap repeat their causes and so have no source.
func ErrorValue(err error) Value {
	if err == nil {
		return Value{kind: KindError, str: "<nil>"}
	}
	return Value{kind: KindError, str: err.Error(), source: sourceChain(err)}
}

func sourceChain(err error) string {
	var parts []string
	last := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		msg := cause.Error()
		if !strings.Contains(last, msg) {
			parts = append(parts, msg)
		}
		last = msg
	}
	return strings.Join(parts, ": ")
}

// Field is a named Value.
type Field struct {
	Key   string
	Value Value
}

func Bool(k string, v bool) Field          { return Field{Key: k, Value: BoolValue(v)} }
func Int(k string, v int) Field            { return Field{Key: k, Value: Int64Value(int64(v))} }
func Int64(k string, v int64) Field        { return Field{Key: k, Value: Int64Value(v)} }
func Uint64(k string, v uint64) Field      { return Field{Key: k, Value: Uint64Value(v)} }
func Float64(k string, v float64) Field    { return Field{Key: k, Value: Float64Value(v)} }
func String(k string, v string) Field      { return Field{Key: k, Value: StringValue(v)} }
func Debug(k string, v interface{}) Field  { return Field{Key: k, Value: DebugValue(v)} }
func DebugString(k string, v string) Field { return Field{Key: k, Value: DebugStringValue(v)} }
func Error(k string, err error) Field      { return Field{Key: k, Value: ErrorValue(err)} }

// BigInt records integers wider than 64 bits. JSON numbers
// cannot carry them without loss so they are written as strings.
func BigInt(k string, v *big.Int) Field {
	return Field{Key: k, Value: StringValue(v.String())}
}

// Message is the conventional field for an event's message.
func Message(msg string) Field { return String(MessageKey, msg) }

const MessageKey = "message"
