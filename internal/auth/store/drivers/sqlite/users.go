package sqlite

import (
	"context"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
)

type usersRepo struct {
	q *queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.withRoles(ctx, row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.withRoles(ctx, row)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	roleRows, err := r.q.ListAllUserRoles(ctx)
	if err != nil {
		return nil, err
	}
	rolesByUser := make(map[string][]domain.Role, len(rows))
	for _, rr := range roleRows {
		rolesByUser[rr.UserID] = append(rolesByUser[rr.UserID], domain.Role(rr.Role))
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, mapUser(row, rolesByUser[row.ID]))
	}
	return users, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := now()
	err := r.q.CreateUser(ctx, userRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	})
	return mapConstraint(err)
}

func (r *usersRepo) AddUserRole(ctx context.Context, userID string, role domain.Role) error {
	ts := now()
	if err := r.q.AddUserRole(ctx, userID, role.String(), ts); err != nil {
		return mapConstraint(err)
	}

	n, err := r.q.TouchUser(ctx, userID, ts)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	n, err := r.q.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) CountUsersWithRole(ctx context.Context, role domain.Role) (int64, error) {
	return r.q.CountUsersWithRole(ctx, role.String())
}

func (r *usersRepo) withRoles(ctx context.Context, row userRow) (domain.User, error) {
	roleRows, err := r.q.ListUserRoles(ctx, row.ID)
	if err != nil {
		return domain.User{}, err
	}
	roles := make([]domain.Role, 0, len(roleRows))
	for _, rr := range roleRows {
		roles = append(roles, domain.Role(rr.Role))
	}
	return mapUser(row, roles), nil
}
