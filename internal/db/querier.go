package db

import (
	"context"
	"database/sql"
)

// Querier is the subset of database operations repositories need. Both *DB
// and *sql.Tx satisfy it, so the same repository code runs standalone or
// inside an explicit transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
