package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/repository"
)

// Querier is the common interface of *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UnitOfWork implements repository.UnitOfWork over database/sql
// transactions, handing the callback transaction-scoped repositories.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a Postgres-backed unit of work.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Run executes fn inside a transaction, committing on nil and rolling
// back on error.
func (u *UnitOfWork) Run(ctx context.Context, fn func(repository.Repos) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := repository.Repos{
		Rides:    NewRideRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
		Wallets:  NewWalletRepositoryWithTx(tx),
		Payments: NewPaymentRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)
