// Package repository is the postgres implementation of store.Storage.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmorales-gt/crediventa/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so every query method
// works identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides database operations against the credit schema.
type Repository struct {
	db *sql.DB
	q  querier
}

// NewRepository initializes a new repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, q: db}
}

var _ store.Storage = (*Repository)(nil)

// Transact runs fn inside a single transaction. Any error from fn rolls the
// transaction back entirely; partial writes are never observable.
func (r *Repository) Transact(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Repository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
