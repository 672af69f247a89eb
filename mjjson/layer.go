package mjjson

import (
	"strconv"
	"time"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjbytes"
	"github.com/xoplog/microjson/mjfield"
	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjspan"
	"github.com/xoplog/microjson/mjutil"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	maxBufferToKeep = 1024 * 10
	minBuffer       = 512
)

var emptyMetadata = &mjspan.Metadata{}

// New builds a Layer that writes to w. Options are applied in
// order, on top of DefaultConfig.
func New(w mjbytes.BytesWriter, opts ...Option) *Layer {
	l := &Layer{
		writer:        w,
		id:            uuid.New(),
		store:         mjspan.NewStore(),
		config:        DefaultConfig(),
		timeFormatter: defaultTimeFormatter,
		clock:         time.Now,
		errorReporter: func(error) {},
	}
	prealloc := mjutil.NewPrealloc(l.preallocatedKeys[:])
	for _, f := range opts {
		f(l, prealloc)
	}
	l.sourceKV = buildSource(prealloc, l.config.Source)
	if l.registerer != nil {
		l.metrics = newMetrics(l.registerer, l)
	}
	return l
}

func (l *Layer) ID() string { return l.id.String() }

// Config returns the toggles the layer was built with.
func (l *Layer) Config() Config { return l.config }

// Metrics is nil unless WithMetrics was used.
func (l *Layer) Metrics() *Metrics { return l.metrics }

// OpenSpans is the number of spans created and not yet released.
func (l *Layer) OpenSpans() int { return l.store.Len() }

func (l *Layer) Flush() error { return l.writer.Flush() }
func (l *Layer) Close() error { return l.writer.Close() }

func (l *Layer) Enabled(level mjnum.Level) bool {
	return level >= l.config.MinLevel
}

func (l *Layer) report(kind string, err error) {
	l.metrics.violation(kind)
	l.errorReporter(err)
}

func (l *Layer) OnSpanCreate(id mjspan.ID, meta *mjspan.Metadata, fields ...mjfield.Field) {
	l.store.Create(id, meta, fields...)
}

func (l *Layer) OnSpanRecord(id mjspan.ID, fields ...mjfield.Field) {
	if err := l.store.Record(id, fields...); err != nil {
		l.report(violationUnknownSpan, err)
	}
}

func (l *Layer) OnEnter(stack *mjspan.Stack, id mjspan.ID) {
	r, ok := l.store.Get(id)
	if !ok {
		l.report(violationUnknownSpan, errors.Wrapf(mjspan.ErrUnknownSpan, "enter span %s", id))
		return
	}
	if stack == nil {
		l.report(violationNoStack, errors.Errorf("enter span %s without a stack", id))
		return
	}
	stack.Push(r)
}

func (l *Layer) OnExit(stack *mjspan.Stack, id mjspan.ID) {
	if err := stack.Pop(id); err != nil {
		l.report(violationNotOnStack, err)
	}
}

func (l *Layer) OnClose(id mjspan.ID) {
	if err := l.store.Close(id); err != nil {
		l.report(violationUnknownSpan, err)
	}
}

func (l *Layer) getLine() *line {
	if raw := l.linePool.Get(); raw != nil {
		ln := raw.(*line)
		ln.Reset()
		return ln
	}
	return &line{
		JBuilder: mjutil.JBuilder{B: make([]byte, 0, minBuffer)},
		layer:    l,
	}
}

func (ln *line) AsBytes() []byte { return ln.B }

func (ln *line) ReclaimMemory() {
	if cap(ln.B) > maxBufferToKeep {
		return
	}
	for i := range ln.views {
		ln.views[i].Clear()
	}
	ln.taken = ln.taken[:0]
	ln.layer.linePool.Put(ln)
}

// copySpans copies the entered spans, root first. Each record is
// locked only while it is copied, never together with another.
func (ln *line) copySpans(stack *mjspan.Stack) []mjspan.View {
	n := 0
	stack.Walk(func(r *mjspan.Record) bool {
		if n == len(ln.views) {
			ln.views = append(ln.views, mjspan.View{})
		}
		r.CopyTo(&ln.views[n])
		n++
		return true
	})
	return ln.views[:n]
}

// metaKey writes a metadata key. Flattened fields cannot reuse it.
func (ln *line) metaKey(k string, flat bool) {
	ln.AddSafeKey(k)
	if flat {
		ln.taken = append(ln.taken, k)
	}
}

// OnEvent writes one line. Only the sink's error is returned,
// exactly as the sink returned it.
func (l *Layer) OnEvent(stack *mjspan.Stack, event *mjbase.Event) error {
	if !l.Enabled(event.Level) {
		return nil
	}
	ln := l.getLine()
	views := ln.copySpans(stack)
	flat := l.config.FlattenEvent
	b := &ln.JBuilder
	b.AppendByte('{')
	l.writeMetadata(ln, stack, event)

	withSpan := l.config.CurrentSpan && len(views) != 0
	withSpans := l.config.SpanList && len(views) != 0
	var v mjfield.Visitor
	if flat {
		if withSpan {
			ln.taken = append(ln.taken, "span")
		}
		if withSpans {
			ln.taken = append(ln.taken, "spans")
		}
		v = mjfield.Continuing(b)
	} else {
		b.AppendString(`,"fields":{`)
		v = mjfield.NewVisitor(b)
	}
	writeSpanFields(&v, views, &event.Fields, ln.taken)
	writeEventFields(&v, &event.Fields, ln.taken)
	if !flat {
		b.AppendByte('}')
	}

	if withSpan {
		b.AppendString(`,"span":`)
		writeSpanObject(b, &views[len(views)-1])
	}
	if withSpans {
		b.AppendString(`,"spans":[`)
		for i := range views {
			if i != 0 {
				b.AppendByte(',')
			}
			writeSpanObject(b, &views[i])
		}
		b.AppendByte(']')
	}
	b.AppendByte('}')
	b.AppendByte('\n')

	n := b.Len()
	level := event.Level.String()
	err := l.writer.Line(ln)
	if err != nil {
		l.metrics.sinkError()
		l.errorReporter(err)
		return err
	}
	l.metrics.line(level, n)
	return nil
}

func (l *Layer) writeMetadata(ln *line, stack *mjspan.Stack, event *mjbase.Event) {
	meta := event.Metadata
	if meta == nil {
		meta = emptyMetadata
	}
	flat := l.config.FlattenEvent
	if l.config.Timestamp == SystemClock {
		ln.metaKey("timestamp", flat)
		ln.B = l.timeFormatter(ln.B, l.clock())
	}
	ln.metaKey("level", flat)
	ln.AddSafeString(event.Level.String())
	if l.config.IncludeTarget {
		ln.metaKey("target", flat)
		ln.AddString(meta.Target)
	}
	if l.config.IncludeFile && meta.File != "" {
		ln.metaKey("filename", flat)
		ln.AddString(meta.File)
	}
	if l.config.IncludeLineNumber && meta.Line != 0 {
		ln.metaKey("line_number", flat)
		ln.AddUint64(uint64(meta.Line))
	}
	if l.config.IncludeThreadID && stack != nil {
		ln.metaKey("threadId", flat)
		ln.AppendString(`"ThreadId(`)
		ln.B = strconv.AppendUint(ln.B, stack.ID(), 10)
		ln.AppendString(`)"`)
	}
	if l.config.IncludeThreadName && stack.Name() != "" {
		ln.metaKey("threadName", flat)
		ln.AddString(stack.Name())
	}
	if len(l.sourceKV) != 0 {
		ln.AppendBytes(l.sourceKV)
		if flat {
			ln.taken = append(ln.taken, "source")
		}
	}
	if event.TraceID != "" {
		ln.metaKey("trace_id", flat)
		ln.AddString(event.TraceID)
	}
	if event.SpanID != "" {
		ln.metaKey("span_id", flat)
		ln.AddString(event.SpanID)
	}
}

// writeSpanFields copies the encoded span fields, root first.
// A field is left out when a span closer to the leaf, or the
// event itself, has the same key, or when the key is taken.
func writeSpanFields(v *mjfield.Visitor, views []mjspan.View, eventFields *mjfield.Set, taken []string) {
	for i := range views {
		sv := &views[i]
		if sv.Len() == 0 {
			continue
		}
		later := views[i+1:]
		if eventFields.Len() == 0 && len(taken) == 0 && !shadowedByAny(sv, later) {
			v.Raw(sv.Encoded())
			continue
		}
		for fi := 0; fi < sv.Len(); fi++ {
			k := sv.Key(fi)
			if eventFields.Has(k) || contains(taken, k) || shadowed(k, later) {
				continue
			}
			v.Raw(sv.EncodedField(fi))
		}
	}
}

func writeEventFields(v *mjfield.Visitor, fields *mjfield.Set, taken []string) {
	if len(taken) == 0 {
		v.Set(fields)
		return
	}
	for _, f := range fields.Fields() {
		if !contains(taken, f.Key) {
			v.Field(f)
		}
	}
}

// shadowed reports if a later span has key. A span that was
// entered twice shadows its own earlier entry.
func shadowed(key string, later []mjspan.View) bool {
	for i := range later {
		if later[i].Has(key) {
			return true
		}
	}
	return false
}

func shadowedByAny(sv *mjspan.View, later []mjspan.View) bool {
	if len(later) == 0 {
		return false
	}
	for fi := 0; fi < sv.Len(); fi++ {
		if shadowed(sv.Key(fi), later) {
			return true
		}
	}
	return false
}

func contains(keys []string, k string) bool {
	for _, t := range keys {
		if t == k {
			return true
		}
	}
	return false
}

// writeSpanObject writes {"name":...,fields}. A field called
// "name" is dropped in favor of the span's name.
func writeSpanObject(b *mjutil.JBuilder, sv *mjspan.View) {
	b.AppendString(`{"name":`)
	b.AddString(sv.Name)
	if !sv.Has("name") {
		if enc := sv.Encoded(); len(enc) != 0 {
			b.AppendByte(',')
			b.AppendBytes(enc)
		}
	} else {
		for fi := 0; fi < sv.Len(); fi++ {
			if sv.Key(fi) != "name" {
				b.AppendByte(',')
				b.AppendBytes(sv.EncodedField(fi))
			}
		}
	}
	b.AppendByte('}')
}
