package mjslog_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xoplog/microjson/mjjson"
	"github.com/xoplog/microjson/mjnum"
	"github.com/xoplog/microjson/mjslog"
	"github.com/xoplog/microjson/mjtest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func setup(t *testing.T, layerOpts []mjjson.Option, opts *mjslog.Options) (*mjslog.Handler, *mjjson.Layer, *mjtest.Buffer) {
	buf := mjtest.NewBuffer(t)
	layer := mjjson.New(buf, append([]mjjson.Option{mjjson.WithoutTime()}, layerOpts...)...)
	return mjslog.New(layer, opts), layer, buf
}

func TestLevel(t *testing.T) {
	assert.Equal(t, mjnum.TraceLevel, mjslog.Level(slog.LevelDebug-4))
	assert.Equal(t, mjnum.DebugLevel, mjslog.Level(slog.LevelDebug))
	assert.Equal(t, mjnum.InfoLevel, mjslog.Level(slog.LevelInfo))
	assert.Equal(t, mjnum.InfoLevel, mjslog.Level(slog.LevelInfo+2))
	assert.Equal(t, mjnum.WarnLevel, mjslog.Level(slog.LevelWarn))
	assert.Equal(t, mjnum.ErrorLevel, mjslog.Level(slog.LevelError+4))
}

func TestMessageAndAttrs(t *testing.T) {
	h, _, buf := setup(t, nil, &mjslog.Options{Target: "shop"})
	log := slog.New(h)
	log.Info("order placed", "order", 17, slog.Bool("rush", true), slog.Duration("took", 1500*time.Millisecond))
	assert.Equal(t,
		`{"level":"INFO","target":"shop","fields":{"message":"order placed","order":17,"rush":true,"took":"1.5s"}}`,
		buf.Last())
}

func TestGroups(t *testing.T) {
	h, _, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false)}, nil)
	log := slog.New(h).With("svc", "api").WithGroup("http")
	log.Warn("slow", "status", 200, slog.Group("req", "method", "GET"), slog.Group("", "inline", 1))
	assert.Equal(t,
		`{"level":"WARN","fields":{"message":"slow","svc":"api","http.status":200,"http.req.method":"GET","http.inline":1}}`,
		buf.Last())
}

func TestErrorAttr(t *testing.T) {
	h, _, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false)}, nil)
	slog.New(h).Error("failed", "err", errors.Wrap(errors.New("timeout"), "fetch"))
	assert.Equal(t,
		`{"level":"ERROR","fields":{"message":"failed","err":"fetch: timeout"}}`,
		buf.Last())
}

func TestOtelAttributeValues(t *testing.T) {
	h, _, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false)}, nil)
	slog.New(h).Info("peer", slog.Any("port", attribute.IntValue(8443)), slog.Any("tls", attribute.BoolValue(true)))
	assert.Equal(t,
		`{"level":"INFO","fields":{"message":"peer","port":8443,"tls":true}}`,
		buf.Last())
}

func TestDuplicateAttrLastWins(t *testing.T) {
	h, _, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false)}, nil)
	slog.New(h).Info("m", "k", 1, "j", 2, "k", 3)
	assert.Equal(t, `{"level":"INFO","fields":{"message":"m","k":3,"j":2}}`, buf.Last())
}

func TestMinimumLevel(t *testing.T) {
	h, _, buf := setup(t, nil, &mjslog.Options{Level: slog.LevelWarn})
	log := slog.New(h)
	log.Info("dropped")
	log.Warn("kept")
	assert.Equal(t, 1, buf.Len())
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestSource(t *testing.T) {
	h, _, buf := setup(t, []mjjson.Option{mjjson.WithFile(true), mjjson.WithLineNumber(true)}, &mjslog.Options{AddSource: true})
	slog.New(h).Info("here")
	m := mjtest.ParseLine(t, buf.Raw()[0])
	assert.True(t, strings.HasSuffix(m["filename"].(string), "mjslog_test.go"), m["filename"])
	assert.NotEqual(t, "0", m["line_number"].(interface{ String() string }).String())
}

func TestSpans(t *testing.T) {
	h, layer, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false), mjjson.WithThreadNames(true)}, nil)
	log := slog.New(h)
	ctx, request := h.StartSpan(context.Background(), "request", slog.Int("id", 42))
	log.DebugContext(ctx, "begin", "status", "ok")
	assert.Equal(t, `{"level":"DEBUG","threadName":"request","fields":{"id":42,"message":"begin","status":"ok"}}`, buf.Last())

	inner, step := h.StartSpan(ctx, "step", slog.Int("n", 1))
	step.Record(slog.String("phase", "load"))
	log.InfoContext(inner, "working")
	assert.Equal(t, `{"level":"INFO","threadName":"request","fields":{"id":42,"n":1,"phase":"load","message":"working"}}`, buf.Last())
	step.End()
	step.End()

	log.InfoContext(ctx, "after")
	assert.Equal(t, `{"level":"INFO","threadName":"request","fields":{"id":42,"message":"after"}}`, buf.Last())
	request.End()
	log.InfoContext(ctx, "outside")
	assert.Equal(t, `{"level":"INFO","threadName":"request","fields":{"message":"outside"}}`, buf.Last())
	assert.Equal(t, 0, layer.OpenSpans())
}

func TestDetach(t *testing.T) {
	h, layer, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false), mjjson.WithFlattenEvent(true), mjjson.WithThreadNames(true)}, nil)
	log := slog.New(h)
	ctx, request := h.StartSpan(context.Background(), "request", slog.String("rid", "r1"))
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			wctx := mjslog.Detach(ctx, "worker-"+name)
			defer mjslog.Release(wctx)
			wctx, span := h.StartSpan(wctx, "part", slog.String("part", name))
			log.InfoContext(wctx, "part done")
			span.End()
		}(name)
	}
	wg.Wait()
	request.End()
	assert.Equal(t, 0, layer.OpenSpans())

	for _, m := range buf.Decoded(t) {
		assert.Equal(t, "r1", m["rid"])
		assert.Equal(t, "worker-"+m["part"].(string), m["threadName"])
	}
	assert.Equal(t, 3, buf.Len())
}

func TestTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, otelSpan := tp.Tracer(t.Name()).Start(context.Background(), "op")
	defer otelSpan.End()

	h, _, buf := setup(t, []mjjson.Option{mjjson.WithTarget(false)}, nil)
	ctx, span := h.StartSpan(ctx, "traced")
	defer span.End()
	slog.New(h).InfoContext(ctx, "with ids")
	m := mjtest.ParseLine(t, buf.Raw()[0])
	require.Contains(t, m, "trace_id")
	assert.Equal(t, otelSpan.SpanContext().TraceID().String(), m["trace_id"])
	assert.Equal(t, otelSpan.SpanContext().SpanID().String(), m["span_id"])
	fields := m["fields"].(map[string]interface{})
	assert.Equal(t, otelSpan.SpanContext().TraceID().String(), fields["otel.trace_id"])
	assert.Equal(t, true, fields["otel.sampled"])
}
