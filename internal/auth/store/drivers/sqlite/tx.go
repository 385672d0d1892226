package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/cityauth/internal/auth/store"
)

// txStore scopes every repository to one *sql.Tx. It satisfies store.Tx so
// service helpers can take either a Store or a transaction.
type txStore struct {
	tx *sql.Tx
	q  *queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx, q: newQueries(tx)}
}

func (t *txStore) Users() store.Users               { return &usersRepo{q: t.q} }
func (t *txStore) RoleRequests() store.RoleRequests { return &roleRequestsRepo{q: t.q} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Tx refuses to start a second transaction. SQLite has no nested BEGIN and
// the pool holds a single connection, so waiting for another would deadlock.
func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, store.ErrNestedTx
}

// WithTx runs fn inside the enclosing transaction.
func (t *txStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

// Schema changes never run inside a request transaction.
func (t *txStore) ApplyMigrations() error { return nil }

// Close leaves the shared database open; the owner of the tx ends it.
func (t *txStore) Close() error { return nil }

// Ping succeeds while the transaction still holds its connection.
func (t *txStore) Ping(ctx context.Context) error {
	var one int
	return t.tx.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
