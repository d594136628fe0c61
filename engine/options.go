package engine

import (
	"errors"
	"log/slog"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/listener"
	"github.com/xraph/conveyor/processor"
	"github.com/xraph/conveyor/retry"
)

// Option configures a Job.
type Option func(*Job) error

// WithName sets the job name.
func WithName(name string) Option {
	return func(j *Job) error {
		j.params.Name = name
		return nil
	}
}

// WithParameters replaces all job parameters.
func WithParameters(p job.Parameters) Option {
	return func(j *Job) error {
		j.params = p
		return nil
	}
}

// WithBatchSize sets the number of records per batch.
func WithBatchSize(n int) Option {
	return func(j *Job) error {
		j.params.BatchSize = n
		return nil
	}
}

// WithErrorThreshold sets the number of processing errors tolerated.
func WithErrorThreshold(n int64) Option {
	return func(j *Job) error {
		j.params.ErrorThreshold = n
		return nil
	}
}

// WithMonitoring enables registration with the monitor.
func WithMonitoring(enabled bool) Option {
	return func(j *Job) error {
		j.params.Monitoring = enabled
		return nil
	}
}

// WithBatchScanning re-writes failed batches record by record.
func WithBatchScanning(enabled bool) Option {
	return func(j *Job) error {
		j.params.BatchScanning = enabled
		return nil
	}
}

// WithReader sets the record source.
func WithReader(r conveyor.Reader) Option {
	return func(j *Job) error {
		if r == nil {
			return errors.New("engine: nil reader")
		}
		j.reader = r
		return nil
	}
}

// WithWriter sets the batch sink.
func WithWriter(w conveyor.Writer) Option {
	return func(j *Job) error {
		if w == nil {
			return errors.New("engine: nil writer")
		}
		j.writer = w
		return nil
	}
}

// WithProcessors appends processors to the pipeline, in order.
func WithProcessors(ps ...conveyor.Processor) Option {
	return func(j *Job) error {
		j.processors = append(j.processors, ps...)
		return nil
	}
}

// WithMiddleware wraps every processor of the pipeline with mws.
func WithMiddleware(mws ...processor.Middleware) Option {
	return func(j *Job) error {
		j.middleware = append(j.middleware, mws...)
		return nil
	}
}

// WithListener registers a listener. Listeners are notified in
// registration order for "before" hooks and in reverse order for the
// others.
func WithListener(l listener.Listener) Option {
	return func(j *Job) error {
		if l == nil {
			return errors.New("engine: nil listener")
		}
		j.listeners = append(j.listeners, l)
		return nil
	}
}

// WithReaderRetry retries failed reads under p. Apply it after
// WithReader.
func WithReaderRetry(p retry.Policy, opts ...retry.Option) Option {
	return func(j *Job) error {
		if j.reader == nil {
			return errors.New("engine: WithReaderRetry needs a reader")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		opts = append([]retry.Option{retry.WithHooks(retry.LoggingHooks(j.logger, "read"))}, opts...)
		j.reader = retry.NewReader(j.reader, p, opts...)
		return nil
	}
}

// WithWriterRetry retries failed writes under p. Apply it after
// WithWriter.
func WithWriterRetry(p retry.Policy, opts ...retry.Option) Option {
	return func(j *Job) error {
		if j.writer == nil {
			return errors.New("engine: WithWriterRetry needs a writer")
		}
		if err := p.Validate(); err != nil {
			return err
		}
		opts = append([]retry.Option{retry.WithHooks(retry.LoggingHooks(j.logger, "write"))}, opts...)
		j.writer = retry.NewWriter(j.writer, p, opts...)
		return nil
	}
}

// WithMonitor sets the monitor runs register with, and enables
// monitoring.
func WithMonitor(m Monitor) Option {
	return func(j *Job) error {
		j.monitor = m
		j.params.Monitoring = m != nil
		return nil
	}
}

// WithLogger sets the structured logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) error {
		if l == nil {
			l = slog.Default()
		}
		j.logger = l
		return nil
	}
}
