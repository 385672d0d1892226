package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
	"github.com/patrickmn/go-cache"
)

// UserService reads users for the API and the bearer authenticator. Lookups
// by id go through a short-lived cache since every authenticated request
// makes one.
type UserService struct {
	Store store.Store

	cache *cache.Cache

	// gen counts invalidations. A load that overlaps one is not cached.
	mu  sync.Mutex
	gen uint64
}

// NewUserService returns a UserService caching users for ttl. A ttl of zero
// or less disables the cache.
func NewUserService(st store.Store, ttl time.Duration) *UserService {
	s := &UserService{Store: st}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(userID); ok {
			metrics.UserCacheLookupsTotal.WithLabelValues("hit").Inc()
			return cloneUser(v.(domain.User)), nil
		}
		metrics.UserCacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	gen := s.generation()
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	if s.cache != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.cache.SetDefault(userID, cloneUser(u))
		}
		s.mu.Unlock()
	}
	return u, nil
}

// ListUsers returns every user, oldest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user and, through the schema, their role requests.
// Only an ADMIN may do this.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Actor, userID string) error {
	l := slogx.FromContext(ctx)

	if !actor.IsAdmin() {
		l.Warn("forbidden user delete", slog.String("actor_id", actor.UserID))
		return ErrAdminRequired
	}

	err := s.Store.Users().DeleteUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.Invalidate(userID)
	l.Info("user deleted", slog.String("user_id", userID), slog.String("actor_id", actor.UserID))
	return nil
}

// Invalidate drops any cached copy of the user. Loads already in flight
// are not cached either.
func (s *UserService) Invalidate(userID string) {
	if s == nil || s.cache == nil {
		return
	}
	s.mu.Lock()
	s.gen++
	s.cache.Delete(userID)
	s.mu.Unlock()
}

func (s *UserService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func cloneUser(u domain.User) domain.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
