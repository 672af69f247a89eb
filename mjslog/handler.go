// Package mjslog lets log/slog drive a formatter. Spans are
// carried in the context: StartSpan opens one on the context's
// stack and the returned context logs inside it.
package mjslog

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjotel"
	"github.com/xoplog/microjson/mjspan"

	"fortio.org/safecast"
	"go.opentelemetry.io/otel/attribute"
)

var _ slog.Handler = &Handler{}

type Options struct {
	// Level is the minimum slog level passed on. Nil means
	// slog.LevelDebug - 4, which lets everything through.
	Level slog.Leveler
	// Target is written as every event's target.
	Target string
	// AddSource puts the caller's file and line into the event
	// metadata.
	AddSource bool
}

type Handler struct {
	h      mjbase.Handler
	opts   Options
	attrs  []mjfield.Field
	prefix string // "group.subgroup."
}

// New wraps h. opts may be nil.
func New(h mjbase.Handler, opts *Options) *Handler {
	s := &Handler{h: h}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

func (s *Handler) Enabled(_ context.Context, level slog.Level) bool {
	if s.opts.Level != nil && level < s.opts.Level.Level() {
		return false
	}
	return s.h.Enabled(Level(level))
}

// Level maps slog levels onto the five event levels. Anything
// below slog.LevelDebug is TRACE.
func Level(level slog.Level) mjnum.Level {
	switch {
	case level >= slog.LevelError:
		return mjnum.ErrorLevel
	case level >= slog.LevelWarn:
		return mjnum.WarnLevel
	case level >= slog.LevelInfo:
		return mjnum.InfoLevel
	case level >= slog.LevelDebug:
		return mjnum.DebugLevel
	}
	return mjnum.TraceLevel
}

func (s *Handler) Handle(ctx context.Context, r slog.Record) error {
	meta := &mjspan.Metadata{Target: s.opts.Target}
	if s.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		meta.File = frame.File
		if line, err := safecast.Conv[uint32](frame.Line); err == nil {
			meta.Line = line
		}
	}
	fields := make([]mjfield.Field, 0, 1+len(s.attrs)+r.NumAttrs())
	fields = append(fields, mjfield.Message(r.Message))
	fields = append(fields, s.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, s.prefix, a)
		return true
	})
	event := &mjbase.Event{
		Level:    Level(r.Level),
		Metadata: meta,
		Fields:   mjfield.Adopt(fields),
	}
	mjotel.Annotate(ctx, event)
	return s.h.OnEvent(stackFromContext(ctx), event)
}

func (s *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	n := *s
	n.attrs = make([]mjfield.Field, len(s.attrs), len(s.attrs)+len(attrs))
	copy(n.attrs, s.attrs)
	for _, a := range attrs {
		n.attrs = appendAttr(n.attrs, s.prefix, a)
	}
	return &n
}

func (s *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	n := *s
	n.prefix = s.prefix + name + "."
	return &n
}

// appendAttr flattens groups into dotted keys.
func appendAttr(fields []mjfield.Field, prefix string, a slog.Attr) []mjfield.Field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, p, ga)
		}
		return fields
	}
	return append(fields, attrField(prefix+a.Key, a.Value))
}

func attrField(k string, v slog.Value) mjfield.Field {
	switch v.Kind() {
	case slog.KindBool:
		return mjfield.Bool(k, v.Bool())
	case slog.KindInt64:
		return mjfield.Int64(k, v.Int64())
	case slog.KindUint64:
		return mjfield.Uint64(k, v.Uint64())
	case slog.KindFloat64:
		return mjfield.Float64(k, v.Float64())
	case slog.KindString:
		return mjfield.String(k, v.String())
	case slog.KindDuration:
		return mjfield.String(k, v.Duration().String())
	case slog.KindTime:
		return mjfield.String(k, v.Time().Format(time.RFC3339Nano))
	}
	switch x := v.Any().(type) {
	case error:
		return mjfield.Error(k, x)
	case attribute.Value:
		return mjotel.Attribute(attribute.KeyValue{Key: attribute.Key(k), Value: x})
	}
	return mjfield.Debug(k, v.Any())
}

func attrFields(prefix string, attrs []slog.Attr) []mjfield.Field {
	var fields []mjfield.Field
	for _, a := range attrs {
		fields = appendAttr(fields, prefix, a)
	}
	return fields
}
