package engine_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

// trace collects call names in order across readers, processors, writers
// and listeners of one test.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(format string, args ...any) {
	t.mu.Lock()
	t.calls = append(t.calls, fmt.Sprintf(format, args...))
	t.mu.Unlock()
}

func (t *trace) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func records(n int) []*conveyor.Record {
	out := make([]*conveyor.Record, 0, n)
	for i := range n {
		out = append(out, conveyor.NewRecord(conveyor.NewHeader(int64(i+1), "test"), fmt.Sprintf("r%d", i+1)))
	}
	return out
}

// testReader yields records in order. Setting failAt makes the read with
// that 1-based index fail.
type testReader struct {
	trace   *trace
	records []*conveyor.Record
	pos     int

	openErr  error
	readErr  error
	failAt   int
	closeErr error

	opened, closed bool
}

func (r *testReader) Open(context.Context) error {
	r.opened = true
	r.pos = 0
	if r.trace != nil {
		r.trace.add("reader.open")
	}
	return r.openErr
}

func (r *testReader) Read(context.Context) (*conveyor.Record, error) {
	if r.failAt > 0 && r.pos+1 == r.failAt {
		r.pos++
		return nil, r.readErr
	}
	if r.pos >= len(r.records) {
		return nil, nil
	}
	rec := r.records[r.pos]
	r.pos++
	if r.trace != nil {
		r.trace.add("read %v", rec.Payload)
	}
	return rec, nil
}

func (r *testReader) Close() error {
	r.closed = true
	if r.trace != nil {
		r.trace.add("reader.close")
	}
	return r.closeErr
}

// testWriter records every batch it writes. failOn decides whether a
// write fails.
type testWriter struct {
	trace   *trace
	batches [][]any
	written []*conveyor.Record

	openErr  error
	closeErr error
	failOn   func(b *conveyor.Batch) error

	opened, closed bool
}

func (w *testWriter) Open(context.Context) error {
	w.opened = true
	if w.trace != nil {
		w.trace.add("writer.open")
	}
	return w.openErr
}

func (w *testWriter) Write(_ context.Context, b *conveyor.Batch) error {
	var payloads []any
	for _, r := range b.All() {
		payloads = append(payloads, r.Payload)
	}
	if w.trace != nil {
		w.trace.add("write %v", payloads)
	}
	if w.failOn != nil {
		if err := w.failOn(b); err != nil {
			return err
		}
	}
	w.batches = append(w.batches, payloads)
	w.written = append(w.written, b.Records()...)
	return nil
}

func (w *testWriter) Close() error {
	w.closed = true
	if w.trace != nil {
		w.trace.add("writer.close")
	}
	return w.closeErr
}

// tracedProcessor passes records through and records the call.
type tracedProcessor struct {
	name  string
	trace *trace
	fn    func(r *conveyor.Record) (*conveyor.Record, error)
	calls int
}

func (p *tracedProcessor) Name() string { return p.name }

func (p *tracedProcessor) Process(_ context.Context, r *conveyor.Record) (*conveyor.Record, error) {
	p.calls++
	if p.trace != nil {
		p.trace.add("%s(%v)", p.name, r.Payload)
	}
	if p.fn != nil {
		return p.fn(r)
	}
	return r, nil
}

// fakeMonitor records every monitor call.
type fakeMonitor struct {
	mu           sync.Mutex
	registerErr  error
	registered   []id.ID
	published    []*job.Report
	unregistered []id.ID
}

func (m *fakeMonitor) Register(runID id.ID, _ *job.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = append(m.registered, runID)
	return nil
}

func (m *fakeMonitor) Publish(s *job.Report) {
	m.mu.Lock()
	m.published = append(m.published, s)
	m.mu.Unlock()
}

func (m *fakeMonitor) Unregister(runID id.ID) {
	m.mu.Lock()
	m.unregistered = append(m.unregistered, runID)
	m.mu.Unlock()
}
