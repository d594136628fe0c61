package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

// ErrAlreadyRegistered is returned when a run ID is registered twice.
var ErrAlreadyRegistered = errors.New("monitor: run already registered")

// UpdateKind tells what happened to a monitored run.
type UpdateKind string

const (
	UpdateRegistered   UpdateKind = "registered"
	UpdateProgress     UpdateKind = "progress"
	UpdateUnregistered UpdateKind = "unregistered"
)

// Update is delivered to subscribers for every change of a monitored run.
type Update struct {
	Kind   UpdateKind  `json:"kind"`
	Report *job.Report `json:"report"`
}

type subscriber struct {
	ch chan Update
}

// Registry holds snapshots of running jobs keyed by run ID. It is safe
// for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*job.Report
	subs    map[int]*subscriber
	nextSub int

	dropped atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: slog.Default(),
		jobs:   make(map[string]*job.Report),
		subs:   make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Register starts tracking a run.
func (r *Registry) Register(runID id.ID, snapshot *job.Report) error {
	key := runID.String()
	if key == "" {
		return errors.New("monitor: nil run id")
	}

	r.mu.Lock()
	if _, ok := r.jobs[key]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}
	r.jobs[key] = snapshot
	r.mu.Unlock()

	r.logger.Debug("job registered",
		slog.String("run_id", key),
		slog.String("job_name", snapshot.JobName),
	)
	r.notify(Update{Kind: UpdateRegistered, Report: snapshot})
	return nil
}

// Publish replaces the snapshot of a registered run. Snapshots of unknown
// runs are ignored.
func (r *Registry) Publish(snapshot *job.Report) {
	key := snapshot.RunID.String()

	r.mu.Lock()
	if _, ok := r.jobs[key]; !ok {
		r.mu.Unlock()
		return
	}
	r.jobs[key] = snapshot
	r.mu.Unlock()

	r.notify(Update{Kind: UpdateProgress, Report: snapshot})
}

// Unregister stops tracking a run.
func (r *Registry) Unregister(runID id.ID) {
	key := runID.String()

	r.mu.Lock()
	snap, ok := r.jobs[key]
	delete(r.jobs, key)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.logger.Debug("job unregistered", slog.String("run_id", key))
	r.notify(Update{Kind: UpdateUnregistered, Report: snap})
}

// Lookup returns the latest snapshot of a run.
func (r *Registry) Lookup(runID id.ID) (*job.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.jobs[runID.String()]
	return snap.Clone(), ok
}

// List returns the latest snapshots of all registered runs, oldest run
// first.
func (r *Registry) List() []*job.Report {
	r.mu.RLock()
	out := make([]*job.Report, 0, len(r.jobs))
	for _, snap := range r.jobs {
		out = append(out, snap.Clone())
	}
	r.mu.RUnlock()

	// Run IDs are K-sortable, so ID order is start order.
	slices.SortFunc(out, func(a, b *job.Report) int {
		switch as, bs := a.RunID.String(), b.RunID.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len returns the number of registered runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Subscribe returns a channel receiving every update, and a function to
// cancel the subscription. Updates are dropped for a subscriber whose
// buffer is full; Dropped counts them.
func (r *Registry) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &subscriber{ch: make(chan Update, buffer)}

	r.mu.Lock()
	key := r.nextSub
	r.nextSub++
	r.subs[key] = s
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, key)
			close(s.ch)
			r.mu.Unlock()
		})
	}
	return s.ch, cancel
}

// Dropped returns the number of updates dropped for slow subscribers.
func (r *Registry) Dropped() int64 { return r.dropped.Load() }

// notify delivers u to every subscriber without blocking. The read lock
// is held while sending so that cancel cannot close a channel mid-send.
func (r *Registry) notify(u Update) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		select {
		case s.ch <- u:
		default:
			r.dropped.Add(1)
		}
	}
}
