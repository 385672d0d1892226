package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
	"github.com/aussiebroadwan/cityauth/pkg/cryptox"
	"github.com/aussiebroadwan/cityauth/pkg/idx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

const maxUsernameLength = 64

// AuthService registers users and checks their credentials.
type AuthService struct {
	Store store.Store
}

// Signup creates a user holding only the USER role.
func (s *AuthService) Signup(ctx context.Context, username, password string) (u domain.User, err error) {
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues("signup", metrics.Result(err)).Inc() }()
	l := slogx.FromContext(ctx)

	username, err = validateCredentials(username, password)
	if err != nil {
		return domain.User{}, err
	}

	// Checked up front so a taken name does not cost an argon2 hash. The
	// unique index still catches a racing signup.
	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err = createUser(ctx, s.Store, username, hash, domain.RoleUser)
	if err != nil {
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// Authenticate returns the user matching username and password. An unknown
// user and a wrong password fail identically and take about as long.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (u domain.User, err error) {
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.Result(err)).Inc() }()
	l := slogx.FromContext(ctx)

	u, err = s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = cryptox.CheckPassword(password, dummyHash())
		l.Warn("login failed", slog.String("reason", "unknown user"))
		return domain.User{}, ErrInvalidCredentials
	case err != nil:
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	}

	if !cryptox.CheckPassword(password, u.PasswordHash) {
		l.Warn("login failed", slog.String("reason", "bad password"), slog.String("user_id", u.ID))
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	if strings.TrimSpace(password) == "" {
		return "", ErrBlankPassword
	}
	return username, nil
}

// createUser stores a new user with roles and returns it as persisted. The
// insert and the grants share a transaction; passed a store.Tx, it joins it.
func createUser(
	ctx context.Context,
	st store.Store,
	username, passwordHash string,
	roles ...domain.Role,
) (created domain.User, err error) {
	err = st.WithTx(ctx, func(tx store.Tx) error {
		id := idx.New().String()
		err := tx.Users().CreateUser(ctx, domain.User{
			ID:           id,
			Username:     username,
			PasswordHash: passwordHash,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrUsernameTaken
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		for _, r := range roles {
			if err := tx.Users().AddUserRole(ctx, id, r); err != nil {
				return fmt.Errorf("grant %s: %w", r, err)
			}
		}

		created, err = tx.Users().GetUserByID(ctx, id)
		return err
	})
	return created, err
}

// fallbackDummyHash stands in when a dummy hash cannot be generated. It
// uses the same argon2id parameters as HashPassword and matches no password.
const fallbackDummyHash = "$argon2id$v=19$m=19456,t=2,p=1$L7Ypt3+kwxlqebuhTuKA4A$4Yn2u/r00gyMTvQuoxdyxE3mW/k7NKhNnhFQASiLijc"

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash is verified against when the user does not exist, so that path
// pays for one argon2id evaluation like a real mismatch.
func dummyHash() string {
	dummyOnce.Do(func() {
		dummy = fallbackDummyHash
		h, err := cryptox.HashPassword(cryptox.MustGenerateToken(cryptox.TokenSize128))
		if err != nil {
			slog.Error("failed to build dummy password hash", slog.Any("error", err))
			return
		}
		dummy = h
	})
	return dummy
}
