package mjutil

import (
	"io"
	"math"
	"strconv"
)

// JBuilder appends JSON lexemes to B. It never builds an
// intermediate value tree: callers write structure and values
// in document order.
type JBuilder struct {
	B []byte
}

var _ io.Writer = &JBuilder{}

// Comma adds a comma if a comma is needed based
// on what's already in the JBuilder: if the previous
// character is '{', '[', or ':' then it does not add a
// comma.  Otherwise it does.
func (b *JBuilder) Comma() {
	if len(b.B) == 0 {
		return
	}
	switch b.B[len(b.B)-1] {
	case '[', '{', ':':
		return
	}
	b.B = append(b.B, ',')
}

func (b *JBuilder) AppendByte(v byte) {
	b.B = append(b.B, v)
}

// AppendBytes adds the bytes without wrapping or checking
func (b *JBuilder) AppendBytes(v []byte) {
	b.B = append(b.B, v...)
}

// AppendString adds the bytes without wrapping or checking
func (b *JBuilder) AppendString(v string) {
	b.B = append(b.B, v...)
}

// Write allows JBuilder to be an io.Writer
func (b *JBuilder) Write(v []byte) (int, error) {
	b.B = append(b.B, v...)
	return len(v), nil
}

func (b *JBuilder) Reset() {
	b.B = b.B[:0]
}

func (b *JBuilder) Len() int { return len(b.B) }

// AddSafeString adds a JSON-encoded string that is known to not need escaping
func (b *JBuilder) AddSafeString(v string) {
	b.B = append(b.B, '"')
	b.AppendString(v)
	b.B = append(b.B, '"')
}

// AddString adds a JSON-encoded string
func (b *JBuilder) AddString(v string) {
	b.B = append(b.B, '"')
	b.AddStringBody(v)
	b.B = append(b.B, '"')
}

// AddBytes adds a JSON-encoded string from raw bytes that
// may or may not be valid UTF-8.
func (b *JBuilder) AddBytes(v []byte) {
	b.B = append(b.B, '"')
	b.AddBytesBody(v)
	b.B = append(b.B, '"')
}

// AddStringBody adds the escaped content of a JSON string
// without the surrounding quotes.
func (b *JBuilder) AddStringBody(v string) {
	b.string(v)
}

func (b *JBuilder) AddBytesBody(v []byte) {
	b.bytes(v)
}

func (b *JBuilder) AddUint64(i uint64) {
	b.B = strconv.AppendUint(b.B, i, 10)
}

func (b *JBuilder) AddInt64(i int64) {
	b.B = strconv.AppendInt(b.B, i, 10)
}

func (b *JBuilder) AddBool(v bool) {
	b.B = strconv.AppendBool(b.B, v)
}

func (b *JBuilder) AddNull() {
	b.B = append(b.B, "null"...)
}

// AddFloat64 writes the shortest representation that reads back
// as the same float64. JSON has no NaN or Infinity so those are
// written as null. Integral values keep a trailing ".0" so that
// they read as floats. Very large and very small magnitudes use
// exponent form, the same cutoffs encoding/json uses.
func (b *JBuilder) AddFloat64(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		b.AddNull()
		return
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	start := len(b.B)
	b.B = strconv.AppendFloat(b.B, f, format, -1, 64)
	if format == 'e' {
		// e-07 => e-7
		n := len(b.B)
		if n-start >= 4 && b.B[n-4] == 'e' && b.B[n-3] == '-' && b.B[n-2] == '0' {
			b.B[n-2] = b.B[n-1]
			b.B = b.B[:n-1]
		}
		return
	}
	for _, c := range b.B[start:] {
		if c == '.' {
			return
		}
	}
	b.B = append(b.B, '.', '0')
}

// AddKey calls Comma() and then adds "k":
func (b *JBuilder) AddKey(k string) {
	b.Comma()
	b.AddString(k)
	b.B = append(b.B, ':')
}

// AddSafeKey is AddKey for keys known to not need escaping
func (b *JBuilder) AddSafeKey(k string) {
	b.Comma()
	b.B = append(b.B, '"')
	b.B = append(b.B, k...)
	b.B = append(b.B, '"', ':')
}
