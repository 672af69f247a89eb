// Package mjtest has sinks and helpers for tests that check
// formatter output.
package mjtest

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/xoplog/microjson/mjbytes"

	"github.com/pkg/errors"
)

type testingT interface {
	Log(...interface{})
	Helper()
	Errorf(string, ...interface{})
	FailNow()
}

var _ mjbytes.BytesWriter = &Buffer{}
var _ mjbytes.BytesWriter = &FailingWriter{}

// Buffer keeps a copy of every line it is given. It is safe for
// concurrent use.
type Buffer struct {
	mu     sync.Mutex
	lines  [][]byte
	t      testingT
	closed bool
}

// NewBuffer returns a Buffer. If t is not nil, each line is also
// passed to t.Log.
func NewBuffer(t testingT) *Buffer {
	return &Buffer{t: t}
}

func (b *Buffer) Line(line mjbytes.Line) error {
	c := bytes.Clone(line.AsBytes())
	line.ReclaimMemory()
	b.mu.Lock()
	b.lines = append(b.lines, c)
	b.mu.Unlock()
	if b.t != nil {
		b.t.Log(string(bytes.TrimSuffix(c, []byte{'\n'})))
	}
	return nil
}

func (b *Buffer) Flush() error { return nil }

func (b *Buffer) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Raw returns the lines as written, newlines included.
func (b *Buffer) Raw() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Last returns the most recent line without its newline.
func (b *Buffer) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return ""
	}
	return strings.TrimSuffix(string(b.lines[len(b.lines)-1]), "\n")
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
}

// Decoded parses every line, failing the test on any that is
// not a single JSON object followed by a newline.
func (b *Buffer) Decoded(t testingT) []map[string]interface{} {
	t.Helper()
	raw := b.Raw()
	out := make([]map[string]interface{}, len(raw))
	for i, l := range raw {
		out[i] = ParseLine(t, l)
	}
	return out
}

// FailingWriter returns Err from every call to Line.
type FailingWriter struct {
	Err error
}

func (f FailingWriter) Line(line mjbytes.Line) error {
	line.ReclaimMemory()
	return f.Err
}

func (f FailingWriter) Flush() error { return nil }
func (f FailingWriter) Close() error { return nil }

// ParseLine decodes one output line. Numbers are kept as
// json.Number so that integers survive exactly.
func ParseLine(t testingT, line string) map[string]interface{} {
	t.Helper()
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("line does not end with a newline: %q", line)
		t.FailNow()
	}
	body := strings.TrimSuffix(line, "\n")
	if strings.ContainsAny(body, "\n\r") {
		t.Errorf("line has an embedded line break: %q", line)
		t.FailNow()
	}
	m, err := Decode(body)
	if err != nil {
		t.Errorf("%s: %q", err, line)
		t.FailNow()
	}
	return m
}

// Decode parses a single JSON object and rejects trailing data.
func Decode(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode line")
	}
	if dec.More() {
		return nil, errors.New("more than one value on the line")
	}
	return m, nil
}

// Keys lists the keys of a JSON object in document order,
// duplicates included.
func Keys(s string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read object start")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.Errorf("not an object: %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "read key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("not a key: %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, errors.Wrapf(err, "read value of %s", key)
		}
	}
	return keys, nil
}

// SubObject returns the raw text of the object under key.
func SubObject(s string, key string) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return "", errors.Wrap(err, "decode line")
	}
	raw, ok := m[key]
	if !ok {
		return "", errors.Errorf("no key %q", key)
	}
	return string(raw), nil
}
