package jwtx

import (
	"errors"
	"time"
)

// Verifier validates a JWT and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures what a verifier expects of a token.
type VerifyOptions struct {
	// Issuer the token must carry. Empty means any.
	Issuer string

	// Leeway allows small clock skew when checking exp and nbf.
	Leeway time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HS256Adapter wraps HS256Verifier in the common Verifier interface.
type HS256Adapter struct{ *HS256Verifier }

func (a HS256Adapter) Verify(token string) (Claims, error) {
	c, err := a.HS256Verifier.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	return *c, nil
}

// NewCommonHS256 returns an HS256 Verifier behind the common interface.
func NewCommonHS256(secret []byte, opts VerifyOptions) (Verifier, error) {
	v, err := NewVerifierHS256(secret, opts)
	if err != nil {
		return nil, err
	}
	return HS256Adapter{v}, nil
}
