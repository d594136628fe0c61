package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/conveyor/worker"
)

var (
	// ErrAlreadyScheduled is returned when a job with the same name is
	// already scheduled.
	ErrAlreadyScheduled = errors.New("cron: job already scheduled")

	// ErrNotScheduled is returned by Unschedule for unknown job names.
	ErrNotScheduled = errors.New("cron: job not scheduled")

	// ErrSchedulerStarted is returned by Start on a running scheduler.
	ErrSchedulerStarted = errors.New("cron: scheduler already started")
)

// Submitter runs the jobs fired by a Scheduler.
type Submitter interface {
	Submit(ctx context.Context, r worker.Runnable) (*worker.Handle, error)
}

var _ Submitter = (*worker.Executor)(nil)

// FiredFunc is called after an entry submitted its job.
type FiredFunc func(name string, h *worker.Handle)

// Entry is a snapshot of a scheduled job.
type Entry struct {
	Name      string     `json:"name"`
	Spec      string     `json:"spec"`
	NextRunAt time.Time  `json:"next_run_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Runs      int        `json:"runs"`
}

type entry struct {
	spec     string
	job      worker.Runnable
	schedule cronlib.Schedule
	next     time.Time
	last     *time.Time
	runs     int
	running  *worker.Handle
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithFiredHook registers fn to be called after every submission. fn runs
// on the tick loop.
func WithFiredHook(fn FiredFunc) SchedulerOption {
	return func(s *Scheduler) { s.fired = fn }
}

// Scheduler fires scheduled jobs on a tick loop.
type Scheduler struct {
	submit       Submitter
	logger       *slog.Logger
	now          func() time.Time
	fired        FiredFunc
	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler submitting to submit.
func NewScheduler(submit Submitter, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		submit:       submit,
		logger:       slog.Default(),
		now:          time.Now,
		tickInterval: time.Second,
		entries:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tickInterval <= 0 {
		s.tickInterval = time.Second
	}
	return s
}

// ──────────────────────────────────────────────────
// Scheduling
// ──────────────────────────────────────────────────

// ScheduleAt fires r once at the given time.
func (s *Scheduler) ScheduleAt(r worker.Runnable, at time.Time) error {
	return s.add(r, "@at "+at.UTC().Format(time.RFC3339), once{}, at)
}

// ScheduleEvery fires r at start and then every interval.
func (s *Scheduler) ScheduleEvery(r worker.Runnable, start time.Time, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("cron: interval must be positive, got %s", interval)
	}
	sched := every{start: start, interval: interval}
	return s.add(r, "@every "+interval.String(), sched, start)
}

// ScheduleCron fires r on a cron expression.
func (s *Scheduler) ScheduleCron(r worker.Runnable, expr string) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	return s.add(r, expr, sched, sched.Next(s.now()))
}

func (s *Scheduler) add(r worker.Runnable, spec string, sched cronlib.Schedule, first time.Time) error {
	name := r.Name()
	if strings.TrimSpace(name) == "" {
		return errors.New("cron: job name is required")
	}
	if now := s.now(); first.Before(now) {
		first = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyScheduled, name)
	}
	s.entries[name] = &entry{spec: spec, job: r, schedule: sched, next: first}
	s.logger.Info("job scheduled",
		slog.String("job_name", name),
		slog.String("spec", spec),
		slog.Time("next_run_at", first),
	)
	return nil
}

// Unschedule removes the entry for the named job. A run in progress is
// not cancelled.
func (s *Scheduler) Unschedule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotScheduled, name)
	}
	delete(s.entries, name)
	s.logger.Info("job unscheduled", slog.String("job_name", name))
	return nil
}

// IsScheduled reports whether the named job has an entry.
func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Entries returns snapshots of all entries sorted by next run time.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Entry{Name: name, Spec: e.spec, NextRunAt: e.next, LastRunAt: e.last, Runs: e.runs})
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Entry) int {
		if c := a.NextRunAt.Compare(b.NextRunAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start launches the tick loop. Jobs are submitted with a context that
// carries the values of ctx but is not cancelled with it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return ErrSchedulerStarted
	}
	s.ctx = context.WithoutCancel(ctx)
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop(stopCh)
	s.logger.Info("cron scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop ends the tick loop. Jobs already submitted keep running on the
// executor.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()
	if stopCh == nil {
		return nil
	}
	close(stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// Started reports whether the tick loop is running.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *Scheduler) tickLoop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick fires every entry due at now. Jobs are submitted without holding
// the scheduler lock, so a full executor queue does not block the other
// methods.
func (s *Scheduler) tick(now time.Time) {
	ctx, due := s.collectDue(now)
	for _, d := range due {
		s.fire(ctx, d, now)
	}
}

type dueEntry struct {
	name  string
	entry *entry
}

// collectDue returns the entries to fire at now and moves every due
// entry to its next time. An entry whose previous run is still active is
// skipped.
func (s *Scheduler) collectDue(now time.Time) (context.Context, []dueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []dueEntry
	for name, e := range s.entries {
		if e.next.IsZero() || e.next.After(now) {
			continue
		}
		if s.busy(e) {
			s.logger.Warn("previous run still active, skipping",
				slog.String("job_name", name),
				slog.Time("due_at", e.next),
			)
		} else {
			due = append(due, dueEntry{name: name, entry: e})
		}

		e.next = e.schedule.Next(now)
		if e.next.IsZero() {
			delete(s.entries, name)
			s.logger.Debug("schedule exhausted", slog.String("job_name", name))
		}
	}
	slices.SortFunc(due, func(a, b dueEntry) int { return strings.Compare(a.name, b.name) })
	return s.ctx, due
}

// busy reports whether the previous run of e is still in progress.
func (s *Scheduler) busy(e *entry) bool {
	if e.running == nil {
		return false
	}
	select {
	case <-e.running.Done():
		e.running = nil
		return false
	default:
		return true
	}
}

func (s *Scheduler) fire(ctx context.Context, d dueEntry, now time.Time) {
	h, err := s.submit.Submit(ctx, d.entry.job)
	if err != nil {
		s.logger.Error("cron submit error",
			slog.String("job_name", d.name),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	e := d.entry
	e.running = h
	e.runs++
	last := now
	e.last = &last
	runs := e.runs
	s.mu.Unlock()

	if s.fired != nil {
		s.fired(d.name, h)
	}
	s.logger.Info("cron fired",
		slog.String("job_name", d.name),
		slog.String("spec", e.spec),
		slog.Int("runs", runs),
	)
}
