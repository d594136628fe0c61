package dispatcher

import (
	"log/slog"
	"math/rand/v2"
)

// FailurePolicy decides what a dispatcher does when a send fails.
type FailurePolicy int

const (
	// ContinueOnError attempts every sink of a broadcast and every record
	// of a batch, then joins the errors.
	ContinueOnError FailurePolicy = iota
	// FailFast stops at the first failing sink or record.
	FailFast
)

// UnmatchedPolicy decides what a content-based dispatcher does with a
// record no route matches when there is no default sink.
type UnmatchedPolicy int

const (
	// DropUnmatched discards the record and counts it.
	DropUnmatched UnmatchedPolicy = iota
	// RejectUnmatched fails the write with ErrUnmatchedRecord.
	RejectUnmatched
)

// Option configures a dispatcher. Options that do not apply to a
// dispatcher type are ignored by it.
type Option func(*options)

type options struct {
	name          string
	logger        *slog.Logger
	poisonOnClose bool
	defaultSink   Sink
	unmatched     UnmatchedPolicy
	failure       FailurePolicy
	rand          *rand.Rand
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
	}
}

// WithName names the dispatcher in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPoisonOnClose makes Close broadcast a poison record to every sink.
func WithPoisonOnClose() Option {
	return func(o *options) { o.poisonOnClose = true }
}

// WithDefault sets the sink receiving records no route matches.
// ContentBased only.
func WithDefault(s Sink) Option {
	return func(o *options) { o.defaultSink = s }
}

// WithUnmatched sets the policy for unmatched records without a default
// sink. ContentBased only.
func WithUnmatched(p UnmatchedPolicy) Option {
	return func(o *options) { o.unmatched = p }
}

// WithFailurePolicy sets how a dispatcher reacts to a failing send: within
// a broadcast (Broadcast and poison records) and across the records of a
// batch.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.failure = p }
}

// WithRand sets the random source. Random only.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rand = r }
}
