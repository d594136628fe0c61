package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/listener"
	"github.com/xraph/conveyor/processor"
)

// ErrJobRunning is reported when Run is called on a job that is already
// running.
var ErrJobRunning = errors.New("engine: job is already running")

// Monitor receives the state of running jobs. monitor.Registry
// implements it.
type Monitor interface {
	Register(runID id.ID, snapshot *job.Report) error
	Publish(snapshot *job.Report)
	Unregister(runID id.ID)
}

// Job is a configured batch job. Build one with New and execute it with
// Run. A Job is reusable only if its reader and writer can be reopened.
type Job struct {
	id         id.ID
	params     job.Parameters
	reader     conveyor.Reader
	writer     conveyor.Writer
	processors []conveyor.Processor
	middleware []processor.Middleware
	listeners  []listener.Listener
	registry   *listener.Registry
	monitor    Monitor
	logger     *slog.Logger

	running atomic.Bool
}

// New builds a job from options. Parameters are validated; a job without
// a reader reads nothing and a job without a writer discards its batches.
func New(opts ...Option) (*Job, error) {
	j := &Job{
		id:     id.NewJobID(),
		params: job.DefaultParameters(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, err
		}
	}

	if err := j.params.Validate(); err != nil {
		return nil, err
	}
	if j.reader == nil {
		j.reader = conveyor.NopReader{}
	}
	if j.writer == nil {
		j.writer = conveyor.NopWriter{}
	}
	for i, p := range j.processors {
		if p == nil {
			return nil, fmt.Errorf("engine: processor %d is nil", i)
		}
		if len(j.middleware) > 0 {
			j.processors[i] = processor.Wrap(p, j.middleware...)
		}
	}

	j.registry = listener.NewRegistry(j.logger)
	for _, l := range j.listeners {
		j.registry.Register(l)
	}
	return j, nil
}

// ID returns the job's identifier. Each run gets its own run ID on top.
func (j *Job) ID() id.ID { return j.id }

// Name returns the job name.
func (j *Job) Name() string { return j.params.Name }

// Parameters returns the job parameters.
func (j *Job) Parameters() job.Parameters { return j.params }

// Run executes the job and returns its report. It blocks until the
// reader is exhausted, a fatal error occurs or ctx is cancelled.
func (j *Job) Run(ctx context.Context) *job.Report {
	if !j.running.CompareAndSwap(false, true) {
		r := job.NewReport(id.NewRunID(), j.params)
		r.Status = job.StatusFailed
		r.LastError = ErrJobRunning
		return r
	}
	defer j.running.Store(false)

	return newRun(j).execute(ctx)
}

// Call runs the job and returns its report, with the report's last error
// as the error when the run did not complete.
func (j *Job) Call(ctx context.Context) (*job.Report, error) {
	r := j.Run(ctx)
	if r.Status == job.StatusCompleted {
		return r, nil
	}
	if r.LastError != nil {
		return r, r.LastError
	}
	return r, fmt.Errorf("engine: job %s ended %s", j.params.Name, r.Status)
}
