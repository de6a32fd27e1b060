// Package repository implements Postgres persistence for the application.
//
// Queries wraps a database handle (either *sql.DB or *sql.Tx via WithTx) and
// exposes one method per SQL statement. Services own transaction boundaries;
// the repository never begins or commits transactions itself.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by queries, satisfied by both
// *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries provides access to all database operations.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
