package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/ern/internal/escalation"
)

// DB defines the database operations used by the store.
// *pgxpool.Pool and pgx.Tx satisfy this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxDB is a DB that can open transactions. *pgxpool.Pool satisfies it.
type TxDB interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the Postgres implementation of escalation.Store.
type Store struct {
	*Queries
	pool TxDB
}

func NewStore(pool TxDB) *Store {
	return &Store{Queries: &Queries{db: pool}, pool: pool}
}

// InTx runs fn in a transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(q escalation.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Queries runs the individual statements against a pool or a transaction.
type Queries struct {
	db DB
}

// noRows translates pgx.ErrNoRows into escalation.ErrNotFound.
func noRows(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, escalation.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var (
	_ escalation.Store   = (*Store)(nil)
	_ escalation.Queries = (*Queries)(nil)
)
