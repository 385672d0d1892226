package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStale is returned by conditional writes whose precondition no longer
	// holds, e.g. a role request that is no longer PENDING.
	ErrStale = errors.New("store: stale write")

	// ErrNestedTx is returned by Tx when called on a transaction.
	ErrNestedTx = errors.New("store: nested transaction")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and so a
// transaction can only be started from the root.
type Store interface {
	Users() Users
	RoleRequests() RoleRequests

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Inside fn only
	// the repositories of tx may be used. On a Tx, fn joins the enclosing
	// transaction and the outcome is left to its owner.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store.
type Users interface {
	// GetUserByID returns a user with its role set.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns every user ordered by creation time.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts the user row only; roles are added with AddUserRole.
	// Returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// AddUserRole grants a role. Granting a role the user already holds is a
	// no-op.
	AddUserRole(ctx context.Context, userID string, role domain.Role) error

	// DeleteUser cascades to user_roles and role_change_requests.
	DeleteUser(ctx context.Context, userID string) error

	// CountUsersWithRole is used by bootstrap to detect an existing admin.
	CountUsersWithRole(ctx context.Context, role domain.Role) (int64, error)
}

// RoleRequests persists the role-change workflow.
type RoleRequests interface {
	// CreateRoleRequest inserts a PENDING request. Returns ErrAlreadyExists
	// when the user already has a PENDING request for the same role.
	CreateRoleRequest(ctx context.Context, req domain.RoleChangeRequest) error

	GetRoleRequestByID(ctx context.Context, id string) (domain.RoleChangeRequest, error)

	// ListRoleRequests returns requests oldest first. An empty status matches
	// every request.
	ListRoleRequests(ctx context.Context, status domain.RoleRequestStatus) ([]domain.RoleChangeRequest, error)

	// TransitionRoleRequest moves a request from one status to another only if
	// it is still in from. Returns ErrNotFound for an unknown id and ErrStale
	// when the status has already changed.
	TransitionRoleRequest(
		ctx context.Context,
		id string,
		from, to domain.RoleRequestStatus,
		decidedBy string,
		decidedAt time.Time,
	) error

	// DeleteResolvedRoleRequestsBefore removes APPROVED and REJECTED requests
	// decided before cutoff and returns how many were removed.
	DeleteResolvedRoleRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
