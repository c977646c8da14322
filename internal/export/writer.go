package export

import "context"

// Writer is one export backend: it consumes chunks of Records and persists them however
// its format demands (§4.9). WriteChunk is called from a single goroutine per Writer, so
// implementations need not be internally concurrent-safe.
type Writer interface {
	WriteChunk(ctx context.Context, chunk []Record) error
	Close() error
}

// WriterFunc adapts a plain function into a Writer for formats with no close-time work.
type WriterFunc func(ctx context.Context, chunk []Record) error

func (f WriterFunc) WriteChunk(ctx context.Context, chunk []Record) error { return f(ctx, chunk) }
func (f WriterFunc) Close() error                                        { return nil }
