package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/conveyor"
)

// Route sends records matching When to To.
type Route struct {
	When conveyor.Predicate
	To   Sink
}

// ContentBased sends each record to the sink of the first route whose
// predicate matches, to the default sink when none matches, and
// otherwise applies the unmatched policy.
type ContentBased struct {
	*base
	routes     []Route
	defaultIdx int // -1 without a default sink
}

var _ conveyor.Writer = (*ContentBased)(nil)

// NewContentBased creates a content-based dispatcher. Routes are tried
// in the order given.
func NewContentBased(routes []Route, opts ...Option) (*ContentBased, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sinks := make([]Sink, 0, len(routes)+1)
	for i, r := range routes {
		if r.When == nil {
			return nil, fmt.Errorf("dispatcher content-based: route %d has no predicate", i)
		}
		sinks = append(sinks, r.To)
	}
	defaultIdx := -1
	if o.defaultSink != nil {
		defaultIdx = len(sinks)
		sinks = append(sinks, o.defaultSink)
	}

	b, err := newBase("content-based", sinks, opts)
	if err != nil {
		return nil, err
	}
	return &ContentBased{base: b, routes: routes, defaultIdx: defaultIdx}, nil
}

// Dispatch routes one record.
func (d *ContentBased) Dispatch(ctx context.Context, r *conveyor.Record) error {
	if r.IsPoison() {
		return d.broadcast(ctx, r)
	}
	for i, route := range d.routes {
		if route.When.Matches(r) {
			return d.send(ctx, i, r)
		}
	}
	if d.defaultIdx >= 0 {
		return d.send(ctx, d.defaultIdx, r)
	}
	if d.opts.unmatched == RejectUnmatched {
		return fmt.Errorf("dispatcher %s: record %d: %w", d.opts.name, r.Header.Number, conveyor.ErrUnmatchedRecord)
	}
	d.dropped.Add(1)
	d.opts.logger.Warn("dropping unmatched record",
		slog.String("dispatcher", d.opts.name),
		slog.Int64("record_number", r.Header.Number),
		slog.String("source", r.Header.Source),
	)
	return nil
}

// Write dispatches every record of b in order.
func (d *ContentBased) Write(ctx context.Context, b *conveyor.Batch) error {
	return d.write(ctx, b, d.Dispatch)
}
