// Package mongo reads records from MongoDB queries and writes batches
// with InsertMany, using the official driver v2.
//
// Usage:
//
//	client, _ := mongo.Connect(options.Client().ApplyURI("mongodb://localhost:27017"))
//	coll := client.Database("shop").Collection("orders")
//	r := conveyormongo.NewDocumentReader(coll, bson.M{"status": "new"})
//	w := conveyormongo.NewWriter(client.Database("shop").Collection("archive"))
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/conveyor"
)

// Collection is the subset of *mongo.Collection used here.
type Collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongod.Cursor, error)
	InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongod.InsertManyResult, error)
}

// Compile-time interface checks.
var (
	_ Collection      = (*mongod.Collection)(nil)
	_ conveyor.Reader = (*Reader[bson.M])(nil)
	_ conveyor.Writer = (*Writer)(nil)
)

// ──────────────────────────────────────────────────
// Reader
// ──────────────────────────────────────────────────

// Reader decodes the documents matched by a filter into payloads of
// type T.
type Reader[T any] struct {
	coll   Collection
	filter any
	find   *options.FindOptionsBuilder
	source string

	cursor *mongod.Cursor
	n      int64
}

// NewReader reads the documents matching filter as T values.
func NewReader[T any](coll Collection, filter any) *Reader[T] {
	if filter == nil {
		filter = bson.D{}
	}
	return &Reader[T]{coll: coll, filter: filter, find: options.Find(), source: "mongodb"}
}

// NewDocumentReader reads the documents matching filter as bson.M.
func NewDocumentReader(coll Collection, filter any) *Reader[bson.M] {
	return NewReader[bson.M](coll, filter)
}

// WithSort sets the order documents are read in, e.g.
// bson.D{{Key: "created_at", Value: 1}}.
func (r *Reader[T]) WithSort(sort any) *Reader[T] {
	r.find.SetSort(sort)
	return r
}

// WithBatchSize sets how many documents the cursor fetches per round
// trip.
func (r *Reader[T]) WithBatchSize(n int32) *Reader[T] {
	r.find.SetBatchSize(n)
	return r
}

// WithSource sets the source name put in record headers.
func (r *Reader[T]) WithSource(source string) *Reader[T] {
	r.source = source
	return r
}

func (r *Reader[T]) Name() string { return "mongo-reader" }

// Open runs the query.
func (r *Reader[T]) Open(ctx context.Context) error {
	cursor, err := r.coll.Find(ctx, r.filter, r.find)
	if err != nil {
		return fmt.Errorf("conveyor/mongo: find: %w", err)
	}
	r.cursor = cursor
	r.n = 0
	return nil
}

// Read returns the next document, or nil once the cursor is exhausted.
func (r *Reader[T]) Read(ctx context.Context) (*conveyor.Record, error) {
	if r.cursor == nil {
		return nil, fmt.Errorf("conveyor/mongo: reader not open")
	}
	if !r.cursor.Next(ctx) {
		if err := r.cursor.Err(); err != nil {
			return nil, fmt.Errorf("conveyor/mongo: cursor: %w", err)
		}
		return nil, nil
	}
	var v T
	if err := r.cursor.Decode(&v); err != nil {
		return nil, fmt.Errorf("conveyor/mongo: decode document %d: %w", r.n+1, err)
	}
	r.n++
	return conveyor.NewRecord(conveyor.NewHeader(r.n, r.source), v), nil
}

// Close releases the cursor.
func (r *Reader[T]) Close() error {
	if r.cursor == nil {
		return nil
	}
	err := r.cursor.Close(context.Background())
	r.cursor = nil
	if err != nil {
		return fmt.Errorf("conveyor/mongo: close cursor: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Writer
// ──────────────────────────────────────────────────

// DocumentFunc turns a record into the document to insert.
type DocumentFunc func(r *conveyor.Record) (any, error)

// Writer inserts each batch with one ordered InsertMany. Poison records
// are skipped.
type Writer struct {
	coll     Collection
	document DocumentFunc
	inserted int64
}

// NewWriter inserts record payloads into coll as they are.
func NewWriter(coll Collection) *Writer {
	return NewWriterFunc(coll, func(r *conveyor.Record) (any, error) { return r.Payload, nil })
}

// NewWriterFunc inserts the documents built by fn.
func NewWriterFunc(coll Collection, fn DocumentFunc) *Writer {
	return &Writer{coll: coll, document: fn}
}

func (w *Writer) Name() string { return "mongo-writer" }

func (w *Writer) Open(context.Context) error { return nil }

func (w *Writer) Write(ctx context.Context, b *conveyor.Batch) error {
	docs := make([]any, 0, b.Len())
	for _, r := range b.All() {
		if r.IsPoison() {
			continue
		}
		doc, err := w.document(r)
		if err != nil {
			return fmt.Errorf("conveyor/mongo: document of record %d: %w", r.Header.Number, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil
	}

	res, err := w.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("conveyor/mongo: insert many: %w", err)
	}
	w.inserted += int64(len(res.InsertedIDs))
	return nil
}

func (w *Writer) Close() error { return nil }

// Result reports the number of inserted documents.
func (w *Writer) Result() any { return w.inserted }
