package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
	"github.com/aussiebroadwan/cityauth/pkg/idx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// RoleChangeService runs the request, approve, reject workflow for granting
// additional roles.
type RoleChangeService struct {
	Store store.Store

	// Users, if set, has its cache entry for the target dropped after an
	// approval so the new role is visible on the next request.
	Users *UserService

	now func() time.Time
}

func (s *RoleChangeService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// RequestRoleChange files a PENDING request for userID to be granted
// roleName. Users may only file for themselves; an ADMIN may file for anyone.
func (s *RoleChangeService) RequestRoleChange(
	ctx context.Context,
	actor domain.Actor,
	userID, roleName string,
) (domain.RoleChangeRequest, error) {
	l := slogx.FromContext(ctx)

	role, err := domain.ParseRole(roleName)
	if err != nil {
		return domain.RoleChangeRequest{}, err
	}

	if actor.UserID != userID && !actor.IsAdmin() {
		l.Warn("forbidden role request for another user",
			slog.String("actor_id", actor.UserID),
			slog.String("user_id", userID),
		)
		return domain.RoleChangeRequest{}, ErrNotRequestOwner
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RoleChangeRequest{}, ErrUserNotFound
	}
	if err != nil {
		return domain.RoleChangeRequest{}, fmt.Errorf("get user: %w", err)
	}
	if u.HasRole(role) {
		return domain.RoleChangeRequest{}, ErrRoleAlreadyHeld
	}

	id := idx.New().String()
	err = s.Store.RoleRequests().CreateRoleRequest(ctx, domain.RoleChangeRequest{
		ID:            id,
		UserID:        u.ID,
		RequestedRole: role,
		Status:        domain.RoleRequestPending,
	})
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.RoleChangeRequest{}, ErrDuplicateRoleRequest
	case errors.Is(err, store.ErrNotFound):
		return domain.RoleChangeRequest{}, ErrUserNotFound
	case err != nil:
		return domain.RoleChangeRequest{}, fmt.Errorf("create role request: %w", err)
	}

	req, err := s.Store.RoleRequests().GetRoleRequestByID(ctx, id)
	if err != nil {
		return domain.RoleChangeRequest{}, fmt.Errorf("reload role request: %w", err)
	}

	metrics.RoleRequestsTotal.WithLabelValues("submitted").Inc()
	l.Info("role change requested",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("role", req.RequestedRole.String()),
	)
	return req, nil
}

// ListRequests returns role change requests oldest first, optionally only
// those in filter.Status. ADMIN only.
func (s *RoleChangeService) ListRequests(
	ctx context.Context,
	actor domain.Actor,
	filter domain.RoleRequestFilter,
) ([]domain.RoleChangeRequest, error) {
	if !actor.IsAdmin() {
		slogx.FromContext(ctx).Warn("forbidden role request listing", slog.String("actor_id", actor.UserID))
		return nil, ErrAdminRequired
	}

	reqs, err := s.Store.RoleRequests().ListRoleRequests(ctx, filter.Status)
	if err != nil {
		return nil, fmt.Errorf("list role requests: %w", err)
	}
	return reqs, nil
}

// Approve moves a PENDING request to APPROVED and grants the role, both in
// one transaction. Of several concurrent decisions on one request exactly
// one succeeds; the others get ErrRequestNotPending.
func (s *RoleChangeService) Approve(ctx context.Context, actor domain.Actor, requestID string) error {
	req, err := s.decide(ctx, actor, requestID, domain.RoleRequestApproved, func(tx store.Tx, req domain.RoleChangeRequest) error {
		err := tx.Users().AddUserRole(ctx, req.UserID, req.RequestedRole)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return err
	}

	s.Users.Invalidate(req.UserID)
	metrics.RoleRequestsTotal.WithLabelValues("approved").Inc()
	slogx.FromContext(ctx).Info("role change approved",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("role", req.RequestedRole.String()),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}

// Reject moves a PENDING request to REJECTED. Roles are untouched.
func (s *RoleChangeService) Reject(ctx context.Context, actor domain.Actor, requestID string) error {
	req, err := s.decide(ctx, actor, requestID, domain.RoleRequestRejected, nil)
	if err != nil {
		return err
	}

	metrics.RoleRequestsTotal.WithLabelValues("rejected").Inc()
	slogx.FromContext(ctx).Info("role change rejected",
		slog.String("request_id", req.ID),
		slog.String("user_id", req.UserID),
		slog.String("role", req.RequestedRole.String()),
		slog.String("actor_id", actor.UserID),
	)
	return nil
}

// decide performs the guarded status transition and then, inside the same
// transaction, the optional side effect.
func (s *RoleChangeService) decide(
	ctx context.Context,
	actor domain.Actor,
	requestID string,
	to domain.RoleRequestStatus,
	effect func(tx store.Tx, req domain.RoleChangeRequest) error,
) (domain.RoleChangeRequest, error) {
	l := slogx.FromContext(ctx)

	if !actor.IsAdmin() {
		l.Warn("forbidden role request decision",
			slog.String("actor_id", actor.UserID),
			slog.String("request_id", requestID),
		)
		return domain.RoleChangeRequest{}, ErrAdminRequired
	}

	var req domain.RoleChangeRequest
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		req, err = tx.RoleRequests().GetRoleRequestByID(ctx, requestID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoleRequestNotFound
		}
		if err != nil {
			return fmt.Errorf("get role request: %w", err)
		}

		if !req.Status.CanTransitionTo(to) {
			return ErrRequestNotPending
		}

		decidedAt := s.clock()
		err = tx.RoleRequests().TransitionRoleRequest(ctx, req.ID, req.Status, to, actor.UserID, decidedAt)
		switch {
		case errors.Is(err, store.ErrStale):
			return ErrRequestNotPending
		case errors.Is(err, store.ErrNotFound):
			return ErrRoleRequestNotFound
		case err != nil:
			return fmt.Errorf("transition role request: %w", err)
		}

		if effect != nil {
			if err := effect(tx, req); err != nil {
				return err
			}
		}

		req.Status = to
		req.DecidedBy = actor.UserID
		req.DecidedAt = &decidedAt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRequestNotPending) {
			l.Warn("role request already decided",
				slog.String("request_id", requestID),
				slog.String("status", req.Status.String()),
			)
		}
		return domain.RoleChangeRequest{}, err
	}
	return req, nil
}
