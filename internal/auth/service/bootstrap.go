package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
	"github.com/aussiebroadwan/cityauth/pkg/cryptox"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// BootstrapService creates the first ADMIN. Signup only ever grants USER, so
// without this no one could approve a role change.
type BootstrapService struct {
	Store store.Store
	Token string // pre-shared; empty disables bootstrap
}

// Enabled reports whether a bootstrap token is configured.
func (s *BootstrapService) Enabled() bool { return s.Token != "" }

// IsBootstrapped reports whether any ADMIN exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	n, err := s.Store.Users().CountUsersWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Bootstrap creates an administrator holding ADMIN and USER. It works only
// while no ADMIN exists and only with the configured token.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if !s.Enabled() {
		return domain.User{}, ErrBootstrapDisabled
	}
	if !cryptox.TokensEqual(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt")
		return domain.User{}, ErrBootstrapUnauthorized
	}

	username, err := validateCredentials(req.AdminUsername, req.AdminPassword)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(req.AdminPassword)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash admin password: %w", err)
	}

	// The admin check and the insert share a transaction so two racing
	// bootstraps cannot both succeed.
	var admin domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Users().CountUsersWithRole(ctx, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("check bootstrap state: %w", err)
		}
		if n > 0 {
			return ErrBootstrapAlready
		}

		admin, err = createUser(ctx, tx, username, hash, domain.RoleAdmin, domain.RoleUser)
		return err
	})
	if errors.Is(err, ErrBootstrapAlready) {
		l.Warn("attempted bootstrap on already-bootstrapped system")
	}
	if err != nil {
		return domain.User{}, err
	}

	l.Info("bootstrapped administrator",
		slog.String("user_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return admin, nil
}
