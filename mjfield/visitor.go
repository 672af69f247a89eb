package mjfield

import (
	"github.com/xoplog/microjson/mjutil"
)

// Visitor writes fields into the JSON object that is currently
// open in a JBuilder. It puts a comma before every field except
// the first one it writes into an object. Call Reset when moving
// on to a new object.
type Visitor struct {
	b     *mjutil.JBuilder
	first bool
}

// NewVisitor starts with the next field being the first
// in its object.
func NewVisitor(b *mjutil.JBuilder) Visitor {
	return Visitor{b: b, first: true}
}

// Continuing treats the object as already having content so
// that every field is preceded by a comma.
func Continuing(b *mjutil.JBuilder) Visitor {
	return Visitor{b: b}
}

func (v *Visitor) Reset() { v.first = true }

// Wrote reports if anything was written since the last Reset.
func (v *Visitor) Wrote() bool { return !v.first }

func (v *Visitor) key(k string) {
	if !v.first {
		v.b.AppendByte(',')
	}
	v.first = false
	v.b.AddString(k)
	v.b.AppendByte(':')
}

func (v *Visitor) Bool(k string, b bool) {
	v.key(k)
	v.b.AddBool(b)
}

func (v *Visitor) Int64(k string, i int64) {
	v.key(k)
	v.b.AddInt64(i)
}

func (v *Visitor) Uint64(k string, u uint64) {
	v.key(k)
	v.b.AddUint64(u)
}

func (v *Visitor) Float64(k string, f float64) {
	v.key(k)
	v.b.AddFloat64(f)
}

func (v *Visitor) String(k string, s string) {
	v.key(k)
	v.b.AddString(s)
}

func (v *Visitor) Debug(k string, rendered string) {
	v.key(k)
	v.b.AddString(rendered)
}

// Error writes one string. A non-empty source is added to the
// message as " (caused by: source)".
func (v *Visitor) Error(k string, msg string, source string) {
	v.key(k)
	if source == "" {
		v.b.AddString(msg)
		return
	}
	v.b.AppendByte('"')
	v.b.AddStringBody(msg)
	v.b.AppendString(" (caused by: ")
	v.b.AddStringBody(source)
	v.b.AppendString(`)"`)
}

// Raw writes a fragment that is already encoded as one or more
// "k":v pairs.
func (v *Visitor) Raw(fragment []byte) {
	if len(fragment) == 0 {
		return
	}
	if !v.first {
		v.b.AppendByte(',')
	}
	v.first = false
	v.b.AppendBytes(fragment)
}

func (v *Visitor) Field(f Field) {
	switch f.Value.kind {
	case KindBool:
		v.Bool(f.Key, f.Value.Bool())
	case KindInt64:
		v.Int64(f.Key, f.Value.Int64())
	case KindUint64:
		v.Uint64(f.Key, f.Value.Uint64())
	case KindFloat64:
		v.Float64(f.Key, f.Value.Float64())
	case KindString:
		v.String(f.Key, f.Value.str)
	case KindDebug:
		v.Debug(f.Key, f.Value.str)
	case KindError:
		v.Error(f.Key, f.Value.str, f.Value.source)
	default:
		v.Debug(f.Key, f.Value.kind.String())
	}
}

func (v *Visitor) Set(s *Set) {
	for _, f := range s.fields {
		v.Field(f)
	}
}
