package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// termLockSpace namespaces the per-term advisory locks taken by WithTermLock.
const termLockSpace = 4201

type Store struct {
	Pool    *pgxpool.Pool
	Queries *Queries
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, Queries: New(pool)}
}

func (s *Store) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	queries := s.Queries.WithTx(tx)
	if err := fn(queries); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// WithTermLock runs fn in a transaction holding the advisory lock of termID,
// so conflict checks and writes for one term never interleave.
func (s *Store) WithTermLock(ctx context.Context, termID int, fn func(*Queries) error) error {
	return s.WithTx(ctx, func(q *Queries) error {
		if _, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, termLockSpace, termID); err != nil {
			return err
		}
		return fn(q)
	})
}
