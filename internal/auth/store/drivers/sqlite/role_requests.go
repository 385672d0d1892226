package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
)

type roleRequestsRepo struct {
	q *queries
}

func (r *roleRequestsRepo) CreateRoleRequest(ctx context.Context, req domain.RoleChangeRequest) error {
	ts := now()
	err := r.q.CreateRoleRequest(ctx, roleRequestRow{
		ID:            req.ID,
		UserID:        req.UserID,
		RequestedRole: req.RequestedRole.String(),
		Status:        domain.RoleRequestPending.String(),
		CreatedAt:     ts,
		UpdatedAt:     ts,
	})
	return mapConstraint(err)
}

func (r *roleRequestsRepo) GetRoleRequestByID(ctx context.Context, id string) (domain.RoleChangeRequest, error) {
	row, err := r.q.GetRoleRequestByID(ctx, id)
	if err != nil {
		return domain.RoleChangeRequest{}, mapNotFound(err)
	}
	return mapRoleRequest(row), nil
}

func (r *roleRequestsRepo) ListRoleRequests(
	ctx context.Context,
	status domain.RoleRequestStatus,
) ([]domain.RoleChangeRequest, error) {
	rows, err := r.q.ListRoleRequests(ctx, status.String())
	if err != nil {
		return nil, err
	}

	out := make([]domain.RoleChangeRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapRoleRequest(row))
	}
	return out, nil
}

func (r *roleRequestsRepo) TransitionRoleRequest(
	ctx context.Context,
	id string,
	from, to domain.RoleRequestStatus,
	decidedBy string,
	decidedAt time.Time,
) error {
	n, err := r.q.TransitionRoleRequest(ctx, id, from.String(), to.String(), decidedBy, decidedAt.UTC())
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Zero rows: tell a missing request apart from one that already moved on.
	if _, err := r.q.GetRoleRequestByID(ctx, id); err != nil {
		return mapNotFound(err)
	}
	return store.ErrStale
}

func (r *roleRequestsRepo) DeleteResolvedRoleRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.DeleteResolvedRoleRequestsBefore(ctx, cutoff.UTC())
}
