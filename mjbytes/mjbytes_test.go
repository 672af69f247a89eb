package mjbytes_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xoplog/microjson/mjbytes"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	b         []byte
	reclaimed bool
}

func (l *testLine) AsBytes() []byte { return l.b }
func (l *testLine) ReclaimMemory()  { l.reclaimed = true }

func newLine(s string) *testLine { return &testLine{b: []byte(s)} }

type chunkyWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *chunkyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func TestIOWriterWholeLines(t *testing.T) {
	var w chunkyWriter
	iow := mjbytes.WriteToIOWriter(&w)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, iow.Line(newLine(fmt.Sprintf(`{"w":%d,"j":%d}`+"\n", i, j))))
			}
		}(i)
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSuffix(w.buf.String(), "\n"), "\n")
	assert.Len(t, lines, 800)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, `{"w":`) && strings.HasSuffix(l, "}"), l)
	}
}

func TestIOWriterReclaims(t *testing.T) {
	var buf bytes.Buffer
	iow := mjbytes.WriteToIOWriter(&buf)
	l := newLine("{}\n")
	require.NoError(t, iow.Line(l))
	assert.True(t, l.reclaimed)
	assert.Equal(t, "{}\n", buf.String())
	assert.NoError(t, iow.Flush())
	assert.NoError(t, iow.Close())
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestIOWriterErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("disk full")
	iow := mjbytes.WriteToIOWriter(errWriter{err: sentinel})
	l := newLine("{}\n")
	err := iow.Line(l)
	assert.Same(t, sentinel, err)
	assert.True(t, l.reclaimed)
}

type closer struct {
	bytes.Buffer
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestIOWriterClose(t *testing.T) {
	c := &closer{}
	require.NoError(t, mjbytes.WriteToIOWriter(c).Close())
	assert.True(t, c.closed)
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (p *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, p.deadline = ctx.Deadline()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

func TestKafkaWriter(t *testing.T) {
	p := &fakeProducer{}
	kw := mjbytes.WriteToKafka(p, mjbytes.WithMessageKey("svc"))
	l := newLine(`{"level":"INFO"}` + "\n")
	require.NoError(t, kw.Line(l))
	assert.True(t, l.reclaimed)
	l.b[2] = 'X'

	require.Len(t, p.messages, 1)
	assert.Equal(t, `{"level":"INFO"}`, string(p.messages[0].Value), "newline trimmed and bytes copied")
	assert.Equal(t, "svc", string(p.messages[0].Key))
	assert.True(t, p.deadline)

	require.NoError(t, kw.Flush())
	require.NoError(t, kw.Close())
	assert.True(t, p.closed)
}

func TestKafkaWriterNoTimeout(t *testing.T) {
	p := &fakeProducer{}
	kw := mjbytes.WriteToKafka(p, mjbytes.WithWriteTimeout(0))
	require.NoError(t, kw.Line(newLine("{}\n")))
	assert.False(t, p.deadline)
	assert.Nil(t, p.messages[0].Key)
}

func TestKafkaWriterError(t *testing.T) {
	sentinel := errors.New("leader not available")
	kw := mjbytes.WriteToKafka(&fakeProducer{err: sentinel}, mjbytes.WithWriteTimeout(time.Second))
	assert.Same(t, sentinel, kw.Line(newLine("{}\n")))
}

func TestNewKafkaProducer(t *testing.T) {
	w := mjbytes.NewKafkaProducer([]string{"localhost:9092"}, "logs")
	assert.Equal(t, "logs", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}
