// Package mjotel connects events to OpenTelemetry: it copies
// trace and span ids from a context onto events, and converts
// OpenTelemetry attributes into fields.
package mjotel

import (
	"context"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjfield"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Fields returns the ids of the span in ctx as lower-case hex.
// ok is false when ctx has no valid span context.
func Fields(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

// Annotate sets event.TraceID and event.SpanID from ctx and
// reports if it did.
func Annotate(ctx context.Context, event *mjbase.Event) bool {
	traceID, spanID, ok := Fields(ctx)
	if !ok {
		return false
	}
	event.TraceID = traceID
	event.SpanID = spanID
	return true
}

// Attribute converts one attribute. Slices have no field
// representation so they are recorded as debug text.
func Attribute(kv attribute.KeyValue) mjfield.Field {
	k := string(kv.Key)
	switch kv.Value.Type() {
	case attribute.BOOL:
		return mjfield.Bool(k, kv.Value.AsBool())
	case attribute.INT64:
		return mjfield.Int64(k, kv.Value.AsInt64())
	case attribute.FLOAT64:
		return mjfield.Float64(k, kv.Value.AsFloat64())
	case attribute.STRING:
		return mjfield.String(k, kv.Value.AsString())
	case attribute.INVALID:
		return mjfield.DebugString(k, "invalid")
	}
	return mjfield.DebugString(k, kv.Value.Emit())
}

func Attributes(kvs ...attribute.KeyValue) []mjfield.Field {
	fields := make([]mjfield.Field, len(kvs))
	for i, kv := range kvs {
		fields[i] = Attribute(kv)
	}
	return fields
}

// SpanFields describes the OpenTelemetry span in ctx as fields
// suitable for a span record: the trace id, the span id, and
// the sampled flag.
func SpanFields(ctx context.Context) []mjfield.Field {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return Attributes(
		attribute.String("otel.trace_id", sc.TraceID().String()),
		attribute.String("otel.span_id", sc.SpanID().String()),
		attribute.Bool("otel.sampled", sc.IsSampled()),
	)
}
