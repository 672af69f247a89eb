package mjutil_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/xoplog/microjson/mjutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escaped(s string) string {
	var b mjutil.JBuilder
	b.AddStringBody(s)
	return string(b.B)
}

func TestEscapeBasic(t *testing.T) {
	assert.Equal(t, "hello", escaped("hello"))
	assert.Equal(t, `say \"hi\"`, escaped(`say "hi"`))
	assert.Equal(t, `back\\slash`, escaped(`back\slash`))
	assert.Equal(t, "", escaped(""))
	assert.Equal(t, "<tag attr='x'>", escaped("<tag attr='x'>"), "no html escaping")
}

func TestEscapeControl(t *testing.T) {
	cases := map[string]string{
		"\n":   `\n`,
		"\r":   `\r`,
		"\t":   `\t`,
		"\x08": `\b`,
		"\x0C": `\f`,
		"\x00": `\u0000`,
		"\x01": `\u0001`,
		"\x1F": `\u001f`,
		"\x7F": "\x7F",
	}
	for in, want := range cases {
		assert.Equalf(t, want, escaped(in), "input %q", in)
	}
}

func TestEscapeUnicodePassthrough(t *testing.T) {
	assert.Equal(t, "café", escaped("café"))
	assert.Equal(t, "日本語", escaped("日本語"))
	assert.Equal(t, "emoji 🎉", escaped("emoji 🎉"))
}

func TestEscapeMalformed(t *testing.T) {
	assert.Equal(t, "a\uFFFDb", escaped("a\xffb"))
	assert.Equal(t, "\uFFFD(", escaped("\xc3\x28"))
	assert.Equal(t, "truncated \uFFFD", escaped("truncated \xe6"))

	var b mjutil.JBuilder
	b.AddBytes([]byte("x\xfe\"y"))
	assert.Equal(t, "\"x\uFFFD\\\"y\"", string(b.B))
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		`"quoted"`,
		`C:\path\to`,
		"line1\nline2\r\n\ttabbed",
		"nul\x00byte",
		"bell\x07and esc\x1b",
		"mixed 日本 \"x\" \\ \x01 end",
		strings.Repeat("é\n", 50),
	}
	for _, in := range inputs {
		var b mjutil.JBuilder
		b.AddString(in)
		var out string
		require.NoErrorf(t, json.Unmarshal(b.B, &out), "encoded %s", string(b.B))
		assert.Equal(t, in, out)

		var bb mjutil.JBuilder
		bb.AddBytes([]byte(in))
		assert.Equal(t, string(b.B), string(bb.B), "bytes and string encoders agree")
	}
}

func TestEscapeMalformedStillValid(t *testing.T) {
	inputs := []string{"\xff", "ok\xc0\xafok", "\xed\xa0\x80", "end\xe2"}
	for _, in := range inputs {
		var b mjutil.JBuilder
		b.AddString(in)
		var out string
		require.NoErrorf(t, json.Unmarshal(b.B, &out), "encoded %q", string(b.B))
		assert.Contains(t, out, "\uFFFD")
	}
}

func TestFloat64(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
		{math.Inf(-1), "null"},
		{3.14, "3.14"},
		{1.5, "1.5"},
		{3, "3.0"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{-42, "-42.0"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012, "123456789012.0"},
	}
	for _, tc := range cases {
		var b mjutil.JBuilder
		b.AddFloat64(tc.in)
		assert.Equalf(t, tc.want, string(b.B), "input %v", tc.in)
		if tc.want != "null" {
			var f float64
			require.NoError(t, json.Unmarshal(b.B, &f))
			assert.Equal(t, tc.in, f)
		}
	}
}

func TestIntegers(t *testing.T) {
	var b mjutil.JBuilder
	b.AppendByte('[')
	b.AddInt64(-42)
	b.Comma()
	b.AddUint64(math.MaxUint64)
	b.Comma()
	b.AddInt64(math.MinInt64)
	b.Comma()
	b.AddBool(true)
	b.Comma()
	b.AddNull()
	b.AppendByte(']')
	assert.Equal(t, "[-42,18446744073709551615,-9223372036854775808,true,null]", string(b.B))
}

func TestKeysAndComma(t *testing.T) {
	var b mjutil.JBuilder
	b.AppendByte('{')
	b.AddKey("a")
	b.AddInt64(1)
	b.AddKey(`we"ird`)
	b.AddString("v")
	b.AddSafeKey("c")
	b.AppendByte('{')
	b.AddSafeKey("d")
	b.AddBool(false)
	b.AppendString("}}")
	assert.Equal(t, `{"a":1,"we\"ird":"v","c":{"d":false}}`, string(b.B))
	assert.True(t, json.Valid(b.B))
}

func TestStringNoAllocWhenClean(t *testing.T) {
	b := mjutil.JBuilder{B: make([]byte, 0, 128)}
	allocs := testing.AllocsPerRun(100, func() {
		b.Reset()
		b.AddString("nothing to escape here")
	})
	assert.Equal(t, float64(0), allocs)
}

func BenchmarkAddStringPlain(b *testing.B) {
	jb := mjutil.JBuilder{B: make([]byte, 0, 128)}
	for i := 0; i < b.N; i++ {
		jb.Reset()
		jb.AddString("hello world")
	}
}

func BenchmarkAddStringEscape(b *testing.B) {
	jb := mjutil.JBuilder{B: make([]byte, 0, 128)}
	for i := 0; i < b.N; i++ {
		jb.Reset()
		jb.AddString("say \"hi\"\nline2")
	}
}
