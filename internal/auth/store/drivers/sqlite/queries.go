package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type userRow struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type userRoleRow struct {
	UserID string
	Role   string
}

type roleRequestRow struct {
	ID            string
	UserID        string
	RequestedRole string
	Status        string
	DecidedBy     sql.NullString
	DecidedAt     sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

/* Users */

const getUserByID = `
SELECT id, username, password_hash, created_at, updated_at
FROM users
WHERE id = ?`

func (q *queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	var u userRow
	err := q.db.QueryRowContext(ctx, getUserByID, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByUsername = `
SELECT id, username, password_hash, created_at, updated_at
FROM users
WHERE username = ?`

func (q *queries) GetUserByUsername(ctx context.Context, username string) (userRow, error) {
	var u userRow
	err := q.db.QueryRowContext(ctx, getUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const listUsers = `
SELECT id, username, password_hash, created_at, updated_at
FROM users
ORDER BY created_at, id`

func (q *queries) ListUsers(ctx context.Context) ([]userRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRow
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const createUser = `
INSERT INTO users (id, username, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`

func (q *queries) CreateUser(ctx context.Context, u userRow) error {
	_, err := q.db.ExecContext(ctx, createUser, u.ID, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const touchUser = `UPDATE users SET updated_at = ? WHERE id = ?`

func (q *queries) TouchUser(ctx context.Context, id string, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, touchUser, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

/* User roles */

const listUserRoles = `
SELECT user_id, role
FROM user_roles
WHERE user_id = ?`

func (q *queries) ListUserRoles(ctx context.Context, userID string) ([]userRoleRow, error) {
	return q.scanUserRoles(ctx, listUserRoles, userID)
}

const listAllUserRoles = `SELECT user_id, role FROM user_roles`

func (q *queries) ListAllUserRoles(ctx context.Context) ([]userRoleRow, error) {
	return q.scanUserRoles(ctx, listAllUserRoles)
}

func (q *queries) scanUserRoles(ctx context.Context, query string, args ...any) ([]userRoleRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRoleRow
	for rows.Next() {
		var r userRoleRow
		if err := rows.Scan(&r.UserID, &r.Role); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const addUserRole = `
INSERT INTO user_roles (user_id, role, granted_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id, role) DO NOTHING`

func (q *queries) AddUserRole(ctx context.Context, userID, role string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, addUserRole, userID, role, at)
	return err
}

const countUsersWithRole = `SELECT COUNT(*) FROM user_roles WHERE role = ?`

func (q *queries) CountUsersWithRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsersWithRole, role).Scan(&n)
	return n, err
}

/* Role change requests */

const roleRequestColumns = `id, user_id, requested_role, status, decided_by, decided_at, created_at, updated_at`

const createRoleRequest = `
INSERT INTO role_change_requests (id, user_id, requested_role, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *queries) CreateRoleRequest(ctx context.Context, r roleRequestRow) error {
	_, err := q.db.ExecContext(ctx, createRoleRequest,
		r.ID, r.UserID, r.RequestedRole, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

const getRoleRequestByID = `
SELECT ` + roleRequestColumns + `
FROM role_change_requests
WHERE id = ?`

func (q *queries) GetRoleRequestByID(ctx context.Context, id string) (roleRequestRow, error) {
	row := q.db.QueryRowContext(ctx, getRoleRequestByID, id)
	return scanRoleRequest(row)
}

const listRoleRequests = `
SELECT ` + roleRequestColumns + `
FROM role_change_requests
ORDER BY created_at, id`

const listRoleRequestsByStatus = `
SELECT ` + roleRequestColumns + `
FROM role_change_requests
WHERE status = ?
ORDER BY created_at, id`

func (q *queries) ListRoleRequests(ctx context.Context, status string) ([]roleRequestRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = q.db.QueryContext(ctx, listRoleRequests)
	} else {
		rows, err = q.db.QueryContext(ctx, listRoleRequestsByStatus, status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []roleRequestRow
	for rows.Next() {
		r, err := scanRoleRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const transitionRoleRequest = `
UPDATE role_change_requests
SET status = ?, decided_by = ?, decided_at = ?, updated_at = ?
WHERE id = ? AND status = ?`

// TransitionRoleRequest is a compare-and-swap on status. The returned count
// is zero when the row is missing or no longer in from.
func (q *queries) TransitionRoleRequest(
	ctx context.Context,
	id, from, to, decidedBy string,
	at time.Time,
) (int64, error) {
	res, err := q.db.ExecContext(ctx, transitionRoleRequest, to, decidedBy, at, at, id, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteResolvedRoleRequestsBefore = `
DELETE FROM role_change_requests
WHERE status IN ('APPROVED', 'REJECTED') AND decided_at < ?`

func (q *queries) DeleteResolvedRoleRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteResolvedRoleRequestsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoleRequest(s rowScanner) (roleRequestRow, error) {
	var r roleRequestRow
	err := s.Scan(
		&r.ID,
		&r.UserID,
		&r.RequestedRole,
		&r.Status,
		&r.DecidedBy,
		&r.DecidedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
