package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/conveyor"
)

// Querier runs a query. *pgxpool.Pool, *pgx.Conn and pgx.Tx implement it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var (
	_ Querier         = (*pgxpool.Pool)(nil)
	_ conveyor.Reader = (*Reader[any])(nil)
)

// Reader turns the rows of a query into records with payloads of type T.
type Reader[T any] struct {
	db     Querier
	query  string
	args   []any
	scan   pgx.RowToFunc[T]
	source string

	rows pgx.Rows
	n    int64
}

// NewReader reads the rows of query, converting each with scan, e.g.
// pgx.RowToStructByName[User].
func NewReader[T any](db Querier, scan pgx.RowToFunc[T], query string, args ...any) *Reader[T] {
	return &Reader[T]{db: db, query: query, args: args, scan: scan, source: "postgres"}
}

// NewMapReader reads the rows of query as map[string]any payloads keyed
// by column name.
func NewMapReader(db Querier, query string, args ...any) *Reader[map[string]any] {
	return NewReader(db, pgx.RowToMap, query, args...)
}

// WithSource sets the source name put in record headers.
func (r *Reader[T]) WithSource(source string) *Reader[T] {
	r.source = source
	return r
}

func (r *Reader[T]) Name() string { return "postgres-reader" }

// Open runs the query.
func (r *Reader[T]) Open(ctx context.Context) error {
	rows, err := r.db.Query(ctx, r.query, r.args...)
	if err != nil {
		return fmt.Errorf("conveyor/postgres: query: %w", err)
	}
	r.rows = rows
	r.n = 0
	return nil
}

// Read returns the next row, or nil once the result set is exhausted.
func (r *Reader[T]) Read(context.Context) (*conveyor.Record, error) {
	if r.rows == nil {
		return nil, fmt.Errorf("conveyor/postgres: reader not open")
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, fmt.Errorf("conveyor/postgres: rows: %w", err)
		}
		return nil, nil
	}
	v, err := r.scan(r.rows)
	if err != nil {
		return nil, fmt.Errorf("conveyor/postgres: scan row %d: %w", r.n+1, err)
	}
	r.n++
	return conveyor.NewRecord(conveyor.NewHeader(r.n, r.source), v), nil
}

// Close releases the result set.
func (r *Reader[T]) Close() error {
	if r.rows == nil {
		return nil
	}
	r.rows.Close()
	err := r.rows.Err()
	r.rows = nil
	if err != nil {
		return fmt.Errorf("conveyor/postgres: close rows: %w", err)
	}
	return nil
}
