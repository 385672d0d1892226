package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/pkg/jwtx"
)

// TokenService mints and checks access tokens. Tokens are stateless: nothing
// is stored and nothing can be revoked before it expires.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration

	now func() time.Time
}

// NewTokenService builds an HS256 token service. The secret and TTL are
// fixed for the life of the process.
func NewTokenService(secret []byte, issuer string, ttl time.Duration) (*TokenService, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	signer, err := jwtx.NewSignerHS256("", secret)
	if err != nil {
		return nil, err
	}

	s := &TokenService{
		Signer: signer,
		Issuer: issuer,
		TTL:    ttl,
		now:    time.Now,
	}

	s.Verifier, err = jwtx.NewCommonHS256(secret, jwtx.VerifyOptions{
		Issuer: issuer,
		Now:    func() time.Time { return s.now() },
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Generate returns a signed token for u that expires after TTL.
func (s *TokenService) Generate(u domain.User) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.Username, u.RoleNames(), s.TTL, s.Issuer, s.now().UTC())

	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	metrics.TokensIssuedTotal.Inc()
	return token, nil
}

// Issue is Generate plus the lifetime, as returned to clients.
func (s *TokenService) Issue(u domain.User) (domain.IssuedToken, error) {
	token, err := s.Generate(u)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: token, ExpiresIn: s.TTL}, nil
}

// Validate checks signature, issuer and expiry and returns the identity the
// token asserts. Expired tokens return ErrTokenExpired; every other failure
// returns ErrInvalidToken.
func (s *TokenService) Validate(token string) (domain.TokenIdentity, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			metrics.TokenValidationsTotal.WithLabelValues("expired").Inc()
			return domain.TokenIdentity{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return domain.TokenIdentity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, name := range claims.Roles {
		r, err := domain.ParseRole(name)
		if err != nil {
			metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
			return domain.TokenIdentity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		roles = append(roles, r)
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	return domain.TokenIdentity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Roles:     roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ExpirationDuration is the lifetime given to every new token.
func (s *TokenService) ExpirationDuration() time.Duration {
	return s.TTL
}
