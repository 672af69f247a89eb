package mjspan

import (
	"sync"

	"github.com/xoplog/microjson/mjfield"

	"github.com/pkg/errors"
)

var (
	ErrUnknownSpan = errors.New("unknown span")
	ErrNotOnStack  = errors.New("span is not on the stack")
)

// Store maps span IDs to their Records. It is shared by all
// execution contexts and safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	spans map[ID]*Record
}

func NewStore() *Store {
	return &Store{
		spans: make(map[ID]*Record),
	}
}

// Create registers a new span. The initial fields are encoded
// right away. Creating an ID that is already registered replaces
// the old record; stacks that still hold the old one keep it.
func (s *Store) Create(id ID, meta *Metadata, fields ...mjfield.Field) *Record {
	r := newRecord(s, id, meta, fields)
	s.mu.Lock()
	s.spans[id] = r
	s.mu.Unlock()
	return r
}

func (s *Store) Get(id ID) (*Record, bool) {
	s.mu.RLock()
	r, ok := s.spans[id]
	s.mu.RUnlock()
	return r, ok
}

// Record adds fields to a span. Keys the span already has are
// replaced in place.
func (s *Store) Record(id ID, fields ...mjfield.Field) error {
	r, ok := s.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownSpan, "record into span %s", id)
	}
	r.record(fields)
	return nil
}

// Close releases a span. A span that is still entered on some
// stack is only marked: it is removed when the last stack
// entry for it is popped.
func (s *Store) Close(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.spans[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSpan, "close span %s", id)
	}
	if r.Entered() > 0 {
		r.closed = true
		return nil
	}
	delete(s.spans, id)
	return nil
}

func (s *Store) closeIfIdle(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.closed || r.Entered() > 0 {
		return
	}
	if current, ok := s.spans[r.id]; ok && current == r {
		delete(s.spans, r.id)
	}
}

// Len is the number of spans that have not been released.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spans)
}
