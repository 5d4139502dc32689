package repository

import (
	"github.com/jackc/pgx/v5"
)

// Queries bundles all hand-written SQL against a pool or transaction.
type Queries struct {
	db DBTX
}

// New creates a query set bound to the given executor.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a query set scoped to an open transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
