package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx methods the queries run against. Satisfied by
// *pgxpool.Pool and pgx.Tx, so the same query methods work inside and
// outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds all database statements.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx rebinds the queries to a transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
