package mjjson

import (
	"sync"
	"time"

	"github.com/xoplog/microjson/mjbase"
	"github.com/xoplog/microjson/mjbytes"
	"github.com/xoplog/microjson/mjspan"
	"github.com/xoplog/microjson/mjutil"
	"github.com/xoplog/microjson/mjutil/mjversion"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var _ mjbase.Handler = &Layer{}
var _ mjbytes.Line = &line{}

type Option func(*Layer, *mjutil.Prealloc)

// TimeFormatter appends the JSON value for the "timestamp" key,
// quotes included, and returns the extended slice.
//
// For example:
//
//	func unixMillis(b []byte, t time.Time) []byte {
//		return strconv.AppendInt(b, t.UnixMilli(), 10)
//	}
//
// The only acceptable operation on the slice is to append.
type TimeFormatter func(b []byte, t time.Time) []byte

// Layer formats span and event callbacks from a host tracing
// framework as one JSON object per line.
type Layer struct {
	writer           mjbytes.BytesWriter
	id               uuid.UUID
	store            *mjspan.Store
	config           Config
	timeFormatter    TimeFormatter
	clock            func() time.Time
	errorReporter    func(error)
	metrics          *Metrics
	registerer       prometheus.Registerer
	sourceKV         []byte // ,"source":"..."
	linePool         sync.Pool
	preallocatedKeys [128]byte
}

type line struct {
	mjutil.JBuilder
	layer *Layer
	views []mjspan.View // entered spans, root first
	taken []string      // top-level metadata keys, when flattened
}

// WithConfig replaces every toggle at once. Options that come
// after it still apply.
func WithConfig(c Config) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config = c
	}
}

// WithTarget controls the "target" key. Default: true.
func WithTarget(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.IncludeTarget = b
	}
}

// WithFile controls the "filename" key. Default: false.
func WithFile(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.IncludeFile = b
	}
}

// WithLineNumber controls the "line_number" key. Default: false.
func WithLineNumber(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.IncludeLineNumber = b
	}
}

func WithThreadIDs(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.IncludeThreadID = b
	}
}

func WithThreadNames(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.IncludeThreadName = b
	}
}

// WithFlattenEvent puts span and event fields at the top level
// instead of inside "fields". Default: false.
func WithFlattenEvent(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.FlattenEvent = b
	}
}

func WithCurrentSpan(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.CurrentSpan = b
	}
}

func WithSpanList(b bool) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.SpanList = b
	}
}

// WithoutTime leaves out "timestamp".
func WithoutTime() Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.Timestamp = Disabled
	}
}

// WithTimeFormatter changes how "timestamp" is written. The
// default is microseconds in UTC: "2026-02-20T12:00:00.000000Z".
func WithTimeFormatter(formatter TimeFormatter) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.timeFormatter = formatter
	}
}

// WithClock replaces time.Now as the source of timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.clock = clock
	}
}

// WithSource names the program producing the output.
func WithSource(s string) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.config.Source = s
	}
}

// WithErrorReporter receives contract violations from the host
// (unknown spans, unbalanced exits) and sink errors. The default
// discards them.
func WithErrorReporter(reporter func(error)) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.errorReporter = reporter
	}
}

// WithMetrics registers the layer's Prometheus collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(l *Layer, _ *mjutil.Prealloc) {
		l.registerer = reg
	}
}

func buildSource(p *mjutil.Prealloc, s string) []byte {
	if s == "" {
		return nil
	}
	name := mjversion.Lenient(s).String()
	b := mjutil.JBuilder{B: make([]byte, 0, len(`,"source":""`)+len(name))}
	b.AppendString(`,"source":`)
	b.AddString(name)
	return p.Pack(b.B)
}

func defaultTimeFormatter(b []byte, t time.Time) []byte {
	b = append(b, '"')
	b = t.UTC().AppendFormat(b, "2006-01-02T15:04:05.000000Z")
	b = append(b, '"')
	return b
}
