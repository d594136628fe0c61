package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/conveyor"
)

// TxBeginner starts transactions. *pgxpool.Pool and *pgx.Conn implement
// it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ TxBeginner      = (*pgxpool.Pool)(nil)
	_ conveyor.Writer = (*Writer)(nil)
)

// ValuesFunc returns the column values for one record, in column order.
type ValuesFunc func(r *conveyor.Record) ([]any, error)

// MapValues reads columns from a map[string]any payload. Missing keys
// become NULL.
func MapValues(columns ...string) ValuesFunc {
	return func(r *conveyor.Record) ([]any, error) {
		m, err := conveyor.MustPayloadAs[map[string]any](r)
		if err != nil {
			return nil, err
		}
		vals := make([]any, len(columns))
		for i, c := range columns {
			vals[i] = m[c]
		}
		return vals, nil
	}
}

// Writer inserts every batch into a table within one transaction.
type Writer struct {
	db      TxBeginner
	table   string
	columns []string
	values  ValuesFunc
	suffix  string
	logger  *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSuffix appends a clause to the INSERT, such as
// "ON CONFLICT (id) DO NOTHING".
func WithSuffix(clause string) WriterOption {
	return func(w *Writer) { w.suffix = clause }
}

// WithLogger sets the writer logger.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// NewWriter inserts into table, taking the values of columns from each
// record with values.
func NewWriter(db TxBeginner, table string, columns []string, values ValuesFunc, opts ...WriterOption) *Writer {
	w := &Writer{
		db:      db,
		table:   table,
		columns: columns,
		values:  values,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Name() string { return "postgres-writer:" + w.table }

func (w *Writer) Open(context.Context) error {
	if w.table == "" || len(w.columns) == 0 {
		return errors.New("conveyor/postgres: writer needs a table and columns")
	}
	return nil
}

// Write inserts b in one transaction. Poison records are skipped.
func (w *Writer) Write(ctx context.Context, b *conveyor.Batch) (err error) {
	query, args, rows, err := w.insert(b)
	if err != nil || rows == 0 {
		return err
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conveyor/postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				w.logger.Warn("rollback failed",
					slog.String("table", w.table),
					slog.String("error", rbErr.Error()),
				)
			}
		}
	}()

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("conveyor/postgres: insert into %s: %w", w.table, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("conveyor/postgres: commit: %w", err)
	}

	w.logger.Debug("batch inserted",
		slog.String("table", w.table),
		slog.Int64("rows", tag.RowsAffected()),
	)
	return nil
}

func (w *Writer) Close() error { return nil }

// insert builds the multi-row INSERT for b.
func (w *Writer) insert(b *conveyor.Batch) (string, []any, int, error) {
	ins := sq.Insert(w.table).Columns(w.columns...).PlaceholderFormat(sq.Dollar)
	rows := 0
	for _, r := range b.All() {
		if r.IsPoison() {
			continue
		}
		vals, err := w.values(r)
		if err != nil {
			return "", nil, 0, fmt.Errorf("conveyor/postgres: values of record %d: %w", r.Header.Number, err)
		}
		if len(vals) != len(w.columns) {
			return "", nil, 0, fmt.Errorf("conveyor/postgres: record %d has %d values for %d columns",
				r.Header.Number, len(vals), len(w.columns))
		}
		ins = ins.Values(vals...)
		rows++
	}
	if rows == 0 {
		return "", nil, 0, nil
	}
	if w.suffix != "" {
		ins = ins.Suffix(w.suffix)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return "", nil, 0, fmt.Errorf("conveyor/postgres: build insert: %w", err)
	}
	return query, args, rows, nil
}
