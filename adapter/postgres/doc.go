// Package postgres reads records from PostgreSQL queries and writes
// batches in transactions, using pgx/v5.
//
// A Reader runs one query when opened and turns every row into a record.
// A Writer inserts each batch with a single multi-row INSERT inside its
// own transaction, so a failed batch leaves no rows behind.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, "postgres://localhost:5432/app")
//	r := postgres.NewMapReader(pool, "SELECT id, email FROM users WHERE active")
//	w := postgres.NewWriter(pool, "contacts", []string{"id", "email"},
//		postgres.MapValues("id", "email"))
package postgres
