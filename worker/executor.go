// Package worker runs independent jobs concurrently on a bounded pool of
// goroutines. Every job keeps its state to itself, so jobs never
// synchronise with each other; the executor only hands out work and
// collects reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

var (
	// ErrNotStarted is returned when jobs are submitted before Start.
	ErrNotStarted = errors.New("worker: executor not started")

	// ErrStopped is returned when jobs are submitted after Stop.
	ErrStopped = errors.New("worker: executor stopped")
)

// Runnable is a job the executor can run. *engine.Job implements it.
type Runnable interface {
	Name() string
	Run(ctx context.Context) *job.Report
}

// Executor runs submitted jobs on a fixed number of worker goroutines.
type Executor struct {
	id     id.ID
	cfg    Config
	logger *slog.Logger

	tasks  chan *Handle
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
	stopped bool

	activeMu sync.Mutex
	active   map[*Handle]struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfig replaces the executor configuration.
func WithConfig(cfg Config) Option {
	return func(e *Executor) { e.cfg = cfg }
}

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) Option {
	return func(e *Executor) { e.cfg.Concurrency = n }
}

// WithQueueSize sets how many jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(e *Executor) { e.cfg.QueueSize = n }
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor. Call Start before submitting jobs.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		id:     id.NewExecutorID(),
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		stopCh: make(chan struct{}),
		active: make(map[*Handle]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.normalize()
	e.tasks = make(chan *Handle, e.cfg.QueueSize)
	return e
}

// ID returns the executor's unique identifier.
func (e *Executor) ID() id.ID { return e.id }

// Config returns the effective configuration.
func (e *Executor) Config() Config { return e.cfg }

// Start launches the worker goroutines. It returns immediately and is a
// no-op when already running.
func (e *Executor) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.running {
		return nil
	}
	e.running = true

	e.logger.Info("executor starting",
		slog.String("executor_id", e.id.String()),
		slog.Int("concurrency", e.cfg.Concurrency),
	)

	for range e.cfg.Concurrency {
		e.wg.Add(1)
		go e.workLoop()
	}
	return nil
}

// Submit queues r and returns a handle to it. The job runs with a context
// derived from ctx, so cancelling ctx cancels the job. Submit blocks while
// the queue is full.
func (e *Executor) Submit(ctx context.Context, r Runnable) (*Handle, error) {
	if r == nil {
		return nil, errors.New("worker: nil job")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	switch {
	case e.stopped:
		return nil, ErrStopped
	case !e.running:
		return nil, ErrNotStarted
	}

	h := newHandle(ctx, r)
	e.track(h)

	select {
	case e.tasks <- h:
		return h, nil
	case <-ctx.Done():
		e.untrack(h)
		h.cancel()
		return nil, fmt.Errorf("worker: submit %q: %w", r.Name(), ctx.Err())
	}
}

// Execute runs r and waits for its report. Cancelling ctx cancels the job;
// the ABORTED report is still returned.
func (e *Executor) Execute(ctx context.Context, r Runnable) (*job.Report, error) {
	h, err := e.Submit(ctx, r)
	if err != nil {
		return nil, err
	}
	<-h.Done()
	return h.Report(), nil
}

// SubmitAll runs every job concurrently and returns their reports in
// submission order. A job that could not be submitted leaves a nil
// report; the first such error is returned once all jobs have ended.
func (e *Executor) SubmitAll(ctx context.Context, rs ...Runnable) ([]*job.Report, error) {
	reports := make([]*job.Report, len(rs))

	var g errgroup.Group
	for i, r := range rs {
		g.Go(func() error {
			rep, err := e.Execute(ctx, r)
			reports[i] = rep
			return err
		})
	}
	err := g.Wait()
	return reports, err
}

// Stop stops accepting jobs and waits for queued and running jobs to
// finish. When ctx is done first, every unfinished job is cancelled and
// Stop waits for them to wind down.
func (e *Executor) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.stopped = true
	e.mu.Unlock()

	e.logger.Info("executor stopping", slog.String("executor_id", e.id.String()))

	close(e.stopCh)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("executor stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("executor shutdown timed out, cancelling active jobs")
		e.cancelActive()
		<-done
		return ctx.Err()
	}
}

// Shutdown is Stop bounded by Config.ShutdownTimeout.
func (e *Executor) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	defer cancel()
	return e.Stop(ctx)
}

// Active returns the number of submitted jobs that have not finished.
func (e *Executor) Active() int {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	return len(e.active)
}

// workLoop is run by each worker goroutine. After Stop it drains the
// queue before returning.
func (e *Executor) workLoop() {
	defer e.wg.Done()

	for {
		select {
		case h := <-e.tasks:
			e.runJob(h)
		case <-e.stopCh:
			for {
				select {
				case h := <-e.tasks:
					e.runJob(h)
				default:
					return
				}
			}
		}
	}
}

func (e *Executor) runJob(h *Handle) {
	defer e.untrack(h)

	report := e.safeRun(h)
	h.resolve(report)

	e.logger.Debug("job finished",
		slog.String("executor_id", e.id.String()),
		slog.String("job_name", h.name),
		slog.String("status", string(report.Status)),
	)
}

// safeRun turns a panicking job into a FAILED report.
func (e *Executor) safeRun(h *Handle) (report *job.Report) {
	defer func() {
		if v := recover(); v != nil {
			e.logger.Error("job panicked",
				slog.String("executor_id", e.id.String()),
				slog.String("job_name", h.name),
				slog.Any("panic", v),
			)
			params := job.DefaultParameters()
			params.Name = h.name
			report = job.NewReport(id.NewRunID(), params)
			report.Status = job.StatusFailed
			report.LastError = fmt.Errorf("worker: job %q panicked: %v", h.name, v)
		}
	}()

	report = h.run.Run(h.ctx)
	if report == nil {
		params := job.DefaultParameters()
		params.Name = h.name
		report = job.NewReport(id.NewRunID(), params)
		report.Status = job.StatusFailed
		report.LastError = fmt.Errorf("worker: job %q returned no report", h.name)
	}
	return report
}

func (e *Executor) track(h *Handle) {
	e.activeMu.Lock()
	e.active[h] = struct{}{}
	e.activeMu.Unlock()
}

func (e *Executor) untrack(h *Handle) {
	e.activeMu.Lock()
	delete(e.active, h)
	e.activeMu.Unlock()
}

func (e *Executor) cancelActive() {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	for h := range e.active {
		e.logger.Warn("cancelling active job", slog.String("job_name", h.name))
		h.cancel()
	}
}
