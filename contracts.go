package conveyor

import "context"

// Reader produces records one at a time. Read returns (nil, nil) at end
// of stream. Close is always called once the job ends, even when Open
// failed.
type Reader interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (*Record, error)
	Close() error
}

// Writer consumes batches. Transactional writers commit once per batch
// and roll the whole batch back when Write fails.
type Writer interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, b *Batch) error
	Close() error
}

// Processor transforms, filters or validates one record. Returning a nil
// record filters the input out of the job; it is not an error.
type Processor interface {
	Process(ctx context.Context, r *Record) (*Record, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, r *Record) (*Record, error)

// Process calls f(ctx, r).
func (f ProcessorFunc) Process(ctx context.Context, r *Record) (*Record, error) { return f(ctx, r) }

// ResultHolder is implemented by processors and writers that accumulate a
// value over the run. The job report carries the value.
type ResultHolder interface {
	Result() any
}

// Named is implemented by components that want a readable name in logs
// and errors.
type Named interface {
	Name() string
}

// NopReader reads nothing.
type NopReader struct{}

func (NopReader) Open(context.Context) error            { return nil }
func (NopReader) Read(context.Context) (*Record, error) { return nil, nil }
func (NopReader) Close() error                          { return nil }

// NopWriter accepts and discards every batch.
type NopWriter struct{}

func (NopWriter) Open(context.Context) error          { return nil }
func (NopWriter) Write(context.Context, *Batch) error { return nil }
func (NopWriter) Close() error                        { return nil }
