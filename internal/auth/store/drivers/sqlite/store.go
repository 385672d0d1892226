package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
}

// NewStore opens the database at dsn. The pool is limited to one connection:
// SQLite allows a single writer, and serialising at the pool keeps
// concurrent write transactions from failing with SQLITE_BUSY. It also keeps
// ":memory:" databases alive for the lifetime of the Store.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   newQueries(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback is a no-op once Commit succeeded.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users               { return &usersRepo{q: s.q} }
func (s *Store) RoleRequests() store.RoleRequests { return &roleRequestsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint turns UNIQUE and PRIMARY KEY violations into
// store.ErrAlreadyExists.
func mapConstraint(err error) error {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return store.ErrNotFound
		}
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time.UTC()
		return &val
	}
	return nil
}

func mapUser(row userRow, roles []domain.Role) domain.User {
	return domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Roles:        domain.SortRoles(roles),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func mapRoleRequest(row roleRequestRow) domain.RoleChangeRequest {
	return domain.RoleChangeRequest{
		ID:            row.ID,
		UserID:        row.UserID,
		RequestedRole: domain.Role(row.RequestedRole),
		Status:        domain.RoleRequestStatus(row.Status),
		DecidedBy:     mapNullString(row.DecidedBy),
		DecidedAt:     mapNullTimePtr(row.DecidedAt),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

// now is the timestamp source for rows written by this driver. Stored
// values are UTC so they sort lexically.
func now() time.Time { return time.Now().UTC() }
