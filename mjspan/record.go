// Package mjspan keeps the fields of open spans and the per
// execution context stacks of entered spans.
package mjspan

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjutil"
)

// ID is the host framework's handle for a span.
type ID uint64

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Metadata describes where a span or event comes from. It is
// shared and read-only.
type Metadata struct {
	Name   string
	Target string
	File   string
	Line   uint32 // zero when unknown
}

// Record is one span's accumulated fields. Fields are encoded
// when they are recorded so that each event that happens within
// the span only has to copy bytes.
type Record struct {
	id    ID
	meta  *Metadata
	store *Store

	mu      sync.RWMutex
	fields  mjfield.Set
	encoded mjutil.JBuilder // "k1":v1,"k2":v2
	ends    []int           // ends[i] is where field i stops in encoded

	refs   int32 // number of stack entries, atomic
	closed bool  // guarded by store.mu
}

func newRecord(store *Store, id ID, meta *Metadata, fields []mjfield.Field) *Record {
	if meta == nil {
		meta = &Metadata{}
	}
	r := &Record{
		id:    id,
		meta:  meta,
		store: store,
	}
	r.fields.AddAll(fields...)
	r.encode()
	return r
}

func (r *Record) ID() ID              { return r.id }
func (r *Record) Metadata() *Metadata { return r.meta }
func (r *Record) Name() string        { return r.meta.Name }

// encode rebuilds the encoded fields from scratch. Must be called
// with mu held for writing (or before the record is shared).
func (r *Record) encode() {
	r.encoded.Reset()
	r.ends = r.ends[:0]
	v := mjfield.NewVisitor(&r.encoded)
	for _, f := range r.fields.Fields() {
		v.Field(f)
		r.ends = append(r.ends, r.encoded.Len())
	}
}

func (r *Record) record(fields []mjfield.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rebuild := false
	v := mjfield.Continuing(&r.encoded)
	if r.fields.Len() == 0 {
		v.Reset()
	}
	for _, f := range fields {
		if r.fields.Has(f.Key) {
			r.fields.Add(f)
			rebuild = true
			continue
		}
		r.fields.Add(f)
		if !rebuild {
			v.Field(f)
			r.ends = append(r.ends, r.encoded.Len())
		}
	}
	if rebuild {
		r.encode()
	}
}

// Encoded returns a copy of all fields as "k":v pairs separated
// by commas, empty when the span has no fields.
func (r *Record) Encoded() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]byte(nil), r.encoded.B...)
}

// View is a copy of a record's fields, taken under the record's
// lock, that can be read without holding any lock. Views are
// meant to be reused: CopyTo keeps their backing arrays.
type View struct {
	Name    string
	encoded []byte
	ends    []int
	keys    []string
}

// CopyTo fills v with the current fields of r.
func (r *Record) CopyTo(v *View) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v.Name = r.meta.Name
	v.encoded = append(v.encoded[:0], r.encoded.B...)
	v.ends = append(v.ends[:0], r.ends...)
	v.keys = v.keys[:0]
	for _, f := range r.fields.Fields() {
		v.keys = append(v.keys, f.Key)
	}
}

func (v *View) Len() int { return len(v.keys) }

func (v *View) Key(i int) string { return v.keys[i] }

// Encoded is the same as Record.Encoded at the time of the copy.
func (v *View) Encoded() []byte { return v.encoded }

// EncodedField is field i as a single "k":v pair.
func (v *View) EncodedField(i int) []byte {
	start := 0
	if i > 0 {
		start = v.ends[i-1] + 1
	}
	return v.encoded[start:v.ends[i]]
}

func (v *View) Has(key string) bool {
	for _, k := range v.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Clear drops the references a View holds so that a pooled View
// does not keep strings alive.
func (v *View) Clear() {
	v.Name = ""
	for i := range v.keys {
		v.keys[i] = ""
	}
	v.keys = v.keys[:0]
	v.encoded = v.encoded[:0]
	v.ends = v.ends[:0]
}

// Entered reports how many stack entries refer to this record.
func (r *Record) Entered() int { return int(atomic.LoadInt32(&r.refs)) }

func (r *Record) acquire() { atomic.AddInt32(&r.refs, 1) }

func (r *Record) release() {
	if atomic.AddInt32(&r.refs, -1) == 0 {
		r.store.closeIfIdle(r)
	}
}
