// Package postgres persists accounts and access-token records in
// PostgreSQL. The one piece of real coordination lives here: rotating a
// user session revokes the previous sessions and inserts the new record in
// a single transaction, so two concurrent logins for the same account can
// never revoke each other's freshly inserted token.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Pool is the subset of pgxpool.Pool the stores use. pgxmock satisfies it
// as well, enabling unit tests without a database.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// Store bundles the pooled connection shared by the per-aggregate stores.
type Store struct {
	pool Pool
}

// Connect opens a connection pool for the given DSN and verifies
// connectivity with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.Connect] pgxpool.New")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "[postgres.Connect] ping")
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool; used by tests to inject pgxmock.
func NewFromPool(pool Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

// Accounts returns the accounts.Repo implementation backed by this store.
func (s *Store) Accounts() *AccountStore {
	return &AccountStore{pool: s.pool}
}

// Tokens returns the token.Repo implementation backed by this store.
func (s *Store) Tokens() *TokenStore {
	return &TokenStore{pool: s.pool}
}
