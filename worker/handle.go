package worker

import (
	"context"

	"github.com/xraph/conveyor/job"
)

// Handle tracks a submitted job. It resolves to the job report once the
// job has run.
type Handle struct {
	name   string
	run    Runnable
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	report *job.Report
}

func newHandle(ctx context.Context, r Runnable) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	return &Handle{
		name:   r.Name(),
		run:    r,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Name returns the name of the submitted job.
func (h *Handle) Name() string { return h.name }

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel asks the job to stop. A job cancelled before it starts still
// runs and ends ABORTED at once.
func (h *Handle) Cancel() { h.cancel() }

// Report returns the job report, or nil while the job has not finished.
func (h *Handle) Report() *job.Report {
	select {
	case <-h.done:
		return h.report
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done. Cancelling ctx only
// stops the wait; use Cancel to stop the job.
func (h *Handle) Wait(ctx context.Context) (*job.Report, error) {
	select {
	case <-h.done:
		return h.report, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) resolve(r *job.Report) {
	h.report = r
	h.cancel()
	close(h.done)
}
