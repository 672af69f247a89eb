package mjslog

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/xoplog/microjson/mjotel"
	"github.com/xoplog/microjson/mjspan"
)

var spanSequence uint64

type stackKey struct{}

func stackFromContext(ctx context.Context) *mjspan.Stack {
	s, _ := ctx.Value(stackKey{}).(*mjspan.Stack)
	return s
}

// Span is an open span started with StartSpan.
type Span struct {
	s     *Handler
	id    mjspan.ID
	stack *mjspan.Stack
	ended int32
}

// StartSpan creates a span, enters it on the context's stack,
// and returns a context that logs inside it. A context that has
// no stack yet gets a new one, named after the span.
//
// A stack belongs to one goroutine. Use Detach before handing
// the context to another goroutine.
func (s *Handler) StartSpan(ctx context.Context, name string, attrs ...slog.Attr) (context.Context, *Span) {
	stack := stackFromContext(ctx)
	if stack == nil {
		stack = mjspan.NewStack(name)
		ctx = context.WithValue(ctx, stackKey{}, stack)
	}
	span := &Span{
		s:     s,
		id:    mjspan.ID(atomic.AddUint64(&spanSequence, 1)),
		stack: stack,
	}
	fields := attrFields(s.prefix, attrs)
	fields = append(fields, mjotel.SpanFields(ctx)...)
	s.h.OnSpanCreate(span.id, &mjspan.Metadata{Name: name, Target: s.opts.Target}, fields...)
	s.h.OnEnter(stack, span.id)
	return ctx, span
}

// Detach returns a context for a new goroutine. It starts inside
// the same spans as ctx but has its own stack.
func Detach(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, stackKey{}, stackFromContext(ctx).Fork(name))
}

func (sp *Span) ID() mjspan.ID { return sp.id }

// Record adds fields to the span. Later events in the span
// include them.
func (sp *Span) Record(attrs ...slog.Attr) {
	sp.s.h.OnSpanRecord(sp.id, attrFields(sp.s.prefix, attrs)...)
}

// End exits and closes the span. Calls after the first do nothing.
func (sp *Span) End() {
	if !atomic.CompareAndSwapInt32(&sp.ended, 0, 1) {
		return
	}
	sp.s.h.OnExit(sp.stack, sp.id)
	sp.s.h.OnClose(sp.id)
}

// Release exits every span on a detached context's stack. Call it
// when the goroutine that owns the context is done.
func Release(ctx context.Context) {
	stackFromContext(ctx).Unwind()
}
