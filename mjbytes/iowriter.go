package mjbytes

import (
	"io"
	"sync"
)

var _ BytesWriter = &IOWriter{}

// IOWriter writes each line with a single Write call, serialized
// so that lines from concurrent events do not interleave.
type IOWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func WriteToIOWriter(w io.Writer) *IOWriter {
	return &IOWriter{w: w}
}

func (iow *IOWriter) Line(line Line) error {
	iow.mu.Lock()
	_, err := iow.w.Write(line.AsBytes())
	iow.mu.Unlock()
	line.ReclaimMemory()
	return err
}

// Flush flushes the underlying writer if it knows how.
func (iow *IOWriter) Flush() error {
	iow.mu.Lock()
	defer iow.mu.Unlock()
	switch f := iow.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Sync() error }:
		return f.Sync()
	}
	return nil
}

func (iow *IOWriter) Close() error {
	if wc, ok := iow.w.(io.Closer); ok {
		return wc.Close()
	}
	return nil
}
