// Package mjbase defines the contract between a host tracing
// framework and the formatter: the lifecycle callbacks the host
// makes and the data it passes along with them.
package mjbase

import (
	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjspan"
)

// Handler is the bottom half of a tracing framework -- the part
// that turns span and event callbacks into output.
//
// The host guarantees, per execution context, that spans are
// created before they are recorded into or entered, that
// OnEnter/OnExit calls nest, and that OnClose comes last.
// Handlers degrade gracefully when those guarantees are broken
// rather than failing the caller.
type Handler interface {
	OnSpanCreate(id mjspan.ID, meta *mjspan.Metadata, fields ...mjfield.Field)
	OnSpanRecord(id mjspan.ID, fields ...mjfield.Field)
	OnEnter(stack *mjspan.Stack, id mjspan.ID)
	OnExit(stack *mjspan.Stack, id mjspan.ID)
	OnClose(id mjspan.ID)

	// OnEvent formats and writes one event. The only error
	// returned is the one from the output sink.
	OnEvent(stack *mjspan.Stack, event *Event) error

	// Enabled allows hosts to skip building events that
	// would not be written.
	Enabled(level mjnum.Level) bool
}

// Event exists only for the duration of an OnEvent call.
type Event struct {
	Level    mjnum.Level
	Metadata *mjspan.Metadata
	Fields   mjfield.Set

	// TraceID and SpanID carry distributed-trace context, if any,
	// as lower-case hex.
	TraceID string
	SpanID  string
}
