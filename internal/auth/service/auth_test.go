package service

import (
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("grants USER only", func(t *testing.T) {
		env := newTestEnv(t)

		u, err := env.auth.Signup(ctx, "alice", "pw")
		require.NoError(t, err)
		require.NotEmpty(t, u.ID)
		require.Equal(t, "alice", u.Username)
		require.Equal(t, []domain.Role{domain.RoleUser}, u.Roles)
		require.NotEqual(t, "pw", u.PasswordHash)
		require.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))
	})

	t.Run("trims username", func(t *testing.T) {
		env := newTestEnv(t)

		u, err := env.auth.Signup(ctx, "  bob  ", "pw")
		require.NoError(t, err)
		require.Equal(t, "bob", u.Username)
	})

	t.Run("duplicate username", func(t *testing.T) {
		env := newTestEnv(t)
		env.signup(t, "alice")

		_, err := env.auth.Signup(ctx, "alice", "other")
		require.ErrorIs(t, err, ErrUsernameTaken)
		require.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		env := newTestEnv(t)

		tests := []struct {
			name     string
			username string
			password string
			want     error
		}{
			{"empty username", "", "pw", ErrInvalidUsername},
			{"blank username", "   ", "pw", ErrInvalidUsername},
			{"long username", strings.Repeat("x", 65), "pw", ErrInvalidUsername},
			{"empty password", "carol", "", ErrBlankPassword},
			{"blank password", "carol", " \t ", ErrBlankPassword},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.auth.Signup(ctx, tt.username, tt.password)
				require.ErrorIs(t, err, tt.want)
				require.ErrorIs(t, err, domain.ErrValidation)
			})
		}

		users, err := env.users.ListUsers(ctx)
		require.NoError(t, err)
		require.Empty(t, users)
	})

	t.Run("64 character username is allowed", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.auth.Signup(ctx, strings.Repeat("é", 64), "pw")
		require.NoError(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	created, err := env.auth.Signup(ctx, "alice", "correct horse")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		u, err := env.auth.Authenticate(ctx, "alice", "correct horse")
		require.NoError(t, err)
		require.Equal(t, created.ID, u.ID)
		require.Equal(t, []domain.Role{domain.RoleUser}, u.Roles)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Authenticate(ctx, "alice", "battery staple")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user fails the same way", func(t *testing.T) {
		_, err := env.auth.Authenticate(ctx, "nobody", "correct horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestDummyHash(t *testing.T) {
	for name, hash := range map[string]string{
		"generated": dummyHash(),
		"fallback":  fallbackDummyHash,
	} {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, hash)
			err := cryptox.VerifyPassword("password-alice", hash)
			require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
		})
	}
}
