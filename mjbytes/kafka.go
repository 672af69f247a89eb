package mjbytes

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer that KafkaWriter uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageWriter = &kafka.Writer{}
var _ BytesWriter = &KafkaWriter{}

// KafkaWriter sends each line as one Kafka message. The trailing
// newline is not part of the message.
type KafkaWriter struct {
	w       MessageWriter
	key     []byte
	timeout time.Duration
}

type KafkaOption func(*KafkaWriter)

// WithMessageKey sets the partitioning key of every message.
func WithMessageKey(key string) KafkaOption {
	return func(k *KafkaWriter) {
		k.key = []byte(key)
	}
}

// WithWriteTimeout bounds each WriteMessages call. Zero means no bound.
func WithWriteTimeout(d time.Duration) KafkaOption {
	return func(k *KafkaWriter) {
		k.timeout = d
	}
}

func WriteToKafka(w MessageWriter, opts ...KafkaOption) *KafkaWriter {
	k := &KafkaWriter{
		w:       w,
		timeout: 10 * time.Second,
	}
	for _, f := range opts {
		f(k)
	}
	return k
}

// NewKafkaProducer builds a *kafka.Writer for topic. Writes are
// synchronous so that delivery failures reach the caller.
func NewKafkaProducer(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
}

func (k *KafkaWriter) Line(line Line) error {
	b := line.AsBytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	value := make([]byte, len(b))
	copy(value, b)
	line.ReclaimMemory()

	ctx := context.Background()
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   k.key,
		Value: value,
	})
}

func (k *KafkaWriter) Flush() error { return nil }

func (k *KafkaWriter) Close() error {
	return errors.Wrap(k.w.Close(), "close kafka writer")
}
