// Package redis moves records through Redis lists. A Writer (or a Sink
// behind a dispatcher) pushes encoded records onto a list and a Reader
// pops them off, so a producer job and its consumer jobs can run in
// different processes. A poison record pushed onto the list ends the
// consumer's stream.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	w := redis.NewWriter(client, "orders")
//	r := redis.NewReader(client, "orders", redis.WithIdleTimeout(5*time.Second))
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/codec"
	"github.com/xraph/conveyor/dispatcher"
)

// Client is the subset of redis.Cmdable used by the queue. *redis.Client,
// *redis.ClusterClient and *redis.Ring implement it.
type Client interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *goredis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...any) *goredis.IntCmd
}

// Compile-time interface checks.
var (
	_ Client          = (*goredis.Client)(nil)
	_ conveyor.Reader = (*Reader)(nil)
	_ conveyor.Writer = (*Writer)(nil)
	_ dispatcher.Sink = (*Sink)(nil)
)

const keyPrefix = "conveyor:queue:"

// queueKey returns the list key for a queue: conveyor:queue:{name}
func queueKey(name string) string { return keyPrefix + name }

type options struct {
	codec  codec.Codec
	poll   time.Duration
	idle   time.Duration
	logger *slog.Logger
}

// Option configures a Reader, Writer or Sink.
type Option func(*options)

// WithCodec sets the record codec. The default is msgpack.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithPollInterval sets how long one blocking pop waits. Cancellation is
// noticed between pops.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.poll = d }
}

// WithIdleTimeout ends the reader's stream once the queue has been empty
// for d. Without it only a poison record ends the stream.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idle = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{
		codec:  codec.Msgpack{},
		poll:   time.Second,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ──────────────────────────────────────────────────
// Reader
// ──────────────────────────────────────────────────

// Reader pops records from a queue. Records keep the header they were
// pushed with.
type Reader struct {
	client Client
	queue  string
	opts   options
	done   bool
}

// NewReader reads from the named queue.
func NewReader(client Client, queue string, opts ...Option) *Reader {
	return &Reader{client: client, queue: queue, opts: newOptions(opts)}
}

func (r *Reader) Name() string { return "redis-reader:" + r.queue }

func (r *Reader) Open(context.Context) error {
	r.done = false
	return nil
}

// Read blocks until a record is available. It returns end of stream on a
// poison record, or when the idle timeout passes with no record.
func (r *Reader) Read(ctx context.Context) (*conveyor.Record, error) {
	if r.done {
		return nil, nil
	}

	var idleSince time.Time
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := r.client.BLPop(ctx, r.opts.poll, queueKey(r.queue)).Result()
		if errors.Is(err, goredis.Nil) {
			if r.opts.idle <= 0 {
				continue
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			if time.Since(idleSince)+r.opts.poll > r.opts.idle {
				r.done = true
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("conveyor/redis: pop %s: %w", r.queue, err)
		}
		// BLPOP replies with [key, value].
		if len(res) != 2 {
			return nil, fmt.Errorf("conveyor/redis: pop %s: unexpected reply of %d elements", r.queue, len(res))
		}

		rec, err := codec.DecodeRecord(r.opts.codec, []byte(res[1]))
		if err != nil {
			return nil, fmt.Errorf("conveyor/redis: %w", err)
		}
		if rec.IsPoison() {
			r.opts.logger.Debug("poison record received", slog.String("queue", r.queue))
			r.done = true
			return nil, nil
		}
		return rec, nil
	}
}

func (r *Reader) Close() error { return nil }

// ──────────────────────────────────────────────────
// Writer and Sink
// ──────────────────────────────────────────────────

// Writer pushes each batch onto a queue with a single RPUSH, so a batch
// lands entirely or not at all.
type Writer struct {
	client Client
	queue  string
	opts   options
}

// NewWriter writes to the named queue.
func NewWriter(client Client, queue string, opts ...Option) *Writer {
	return &Writer{client: client, queue: queue, opts: newOptions(opts)}
}

func (w *Writer) Name() string { return "redis-writer:" + w.queue }

func (w *Writer) Open(context.Context) error { return nil }

func (w *Writer) Write(ctx context.Context, b *conveyor.Batch) error {
	if b.IsEmpty() {
		return nil
	}
	values := make([]any, 0, b.Len())
	for _, r := range b.All() {
		data, err := codec.EncodeRecord(w.opts.codec, r)
		if err != nil {
			return fmt.Errorf("conveyor/redis: %w", err)
		}
		values = append(values, data)
	}
	if err := w.client.RPush(ctx, queueKey(w.queue), values...).Err(); err != nil {
		return fmt.Errorf("conveyor/redis: push %s: %w", w.queue, err)
	}
	return nil
}

func (w *Writer) Close() error { return nil }

// Sink pushes single records onto a queue. Use it as a dispatcher sink to
// fan records out to several queues.
type Sink struct {
	w *Writer
}

// NewSink sends to the named queue.
func NewSink(client Client, queue string, opts ...Option) *Sink {
	return &Sink{w: NewWriter(client, queue, opts...)}
}

// Send pushes r, poison records included.
func (s *Sink) Send(ctx context.Context, r *conveyor.Record) error {
	return s.w.Write(ctx, conveyor.BatchOf(r))
}

// Terminate pushes a poison record, ending the stream of the queue's
// reader.
func Terminate(ctx context.Context, client Client, queue string, opts ...Option) error {
	return NewSink(client, queue, opts...).Send(ctx, conveyor.NewPoisonRecord())
}
