package mjjson

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	violationUnknownSpan = "unknown_span"
	violationNotOnStack  = "not_on_stack"
	violationNoStack     = "no_stack"
)

// Metrics counts what a Layer writes.
type Metrics struct {
	Lines      *prometheus.CounterVec
	Bytes      prometheus.Counter
	SinkErrors prometheus.Counter
	Violations *prometheus.CounterVec
	OpenSpans  prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, l *Layer) *Metrics {
	labels := prometheus.Labels{"layer": l.id.String()}
	f := promauto.With(reg)
	return &Metrics{
		Lines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "microjson",
			Name:        "lines_total",
			Help:        "Lines written, by level",
			ConstLabels: labels,
		}, []string{"level"}),
		Bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "microjson",
			Name:        "bytes_total",
			Help:        "Bytes handed to the sink",
			ConstLabels: labels,
		}),
		SinkErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "microjson",
			Name:        "sink_errors_total",
			Help:        "Lines the sink failed to write",
			ConstLabels: labels,
		}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "microjson",
			Name:        "contract_violations_total",
			Help:        "Span callbacks that did not match the span lifecycle",
			ConstLabels: labels,
		}, []string{"kind"}),
		OpenSpans: f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "microjson",
			Name:        "open_spans",
			Help:        "Spans created and not yet released",
			ConstLabels: labels,
		}, func() float64 { return float64(l.store.Len()) }),
	}
}

func (m *Metrics) line(level string, n int) {
	if m == nil {
		return
	}
	m.Lines.WithLabelValues(level).Inc()
	m.Bytes.Add(float64(n))
}

func (m *Metrics) sinkError() {
	if m == nil {
		return
	}
	m.SinkErrors.Inc()
}

func (m *Metrics) violation(kind string) {
	if m == nil {
		return
	}
	m.Violations.WithLabelValues(kind).Inc()
}
