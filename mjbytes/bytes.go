// Package mjbytes holds the output sinks that finished JSON
// lines are written to.
package mjbytes

// Line is one complete, newline-terminated JSON document.
type Line interface {
	AsBytes() []byte
	// ReclaimMemory is called once the writer is done with
	// the bytes. The bytes must not be used afterwards.
	ReclaimMemory()
}

// BytesWriter receives finished lines. Line may be called from
// many goroutines at once; each call must be written whole.
// Errors are returned to the caller as they are.
type BytesWriter interface {
	Line(Line) error
	Flush() error
	Close() error
}
