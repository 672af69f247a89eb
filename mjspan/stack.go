package mjspan

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

var stackSequence uint64

// Stack is the ordered list of spans that are entered in one
// execution context, innermost last. A Stack belongs to a single
// goroutine (or a single cooperative task) and is not safe for
// concurrent use. A nil *Stack is a valid, empty stack.
type Stack struct {
	name  string
	id    uint64
	spans []*Record
}

// NewStack creates a stack for a new execution context. The
// name and a process-unique number identify the context in
// output.
func NewStack(name string) *Stack {
	return &Stack{
		name:  name,
		id:    atomic.AddUint64(&stackSequence, 1),
		spans: make([]*Record, 0, 8),
	}
}

func (s *Stack) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Stack) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.spans)
}

// Current is the innermost entered span, nil when there is none.
func (s *Stack) Current() *Record {
	if s.Len() == 0 {
		return nil
	}
	return s.spans[len(s.spans)-1]
}

// Records returns the entered spans root first. The slice must
// not be modified or kept.
func (s *Stack) Records() []*Record {
	if s == nil {
		return nil
	}
	return s.spans
}

// Push enters a span.
func (s *Stack) Push(r *Record) {
	r.acquire()
	s.spans = append(s.spans, r)
}

// Pop exits a span. Exiting the innermost span is the normal
// case. Exiting a span further down unwinds every span above it
// as well. Exiting a span that is not on the stack changes
// nothing and returns an error wrapping ErrNotOnStack.
func (s *Stack) Pop(id ID) error {
	for i := s.Len() - 1; i >= 0; i-- {
		if s.spans[i].id != id {
			continue
		}
		for j := len(s.spans) - 1; j >= i; j-- {
			r := s.spans[j]
			s.spans[j] = nil
			r.release()
		}
		s.spans = s.spans[:i]
		return nil
	}
	return errors.Wrapf(ErrNotOnStack, "exit span %s", id)
}

// Unwind exits everything.
func (s *Stack) Unwind() {
	for s.Len() > 0 {
		_ = s.Pop(s.spans[0].id)
	}
}

// Fork starts a new execution context that begins inside the
// same spans as s. The two stacks are independent afterwards.
func (s *Stack) Fork(name string) *Stack {
	n := NewStack(name)
	for _, r := range s.Records() {
		n.Push(r)
	}
	return n
}

// Walk calls fn for each entered span, root first, until fn
// returns false.
func (s *Stack) Walk(fn func(*Record) bool) {
	for _, r := range s.Records() {
		if !fn(r) {
			return
		}
	}
}
