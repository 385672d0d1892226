package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is used when a service does not configure its own.
const DefaultAccessTokenTTL = time.Hour

// Claims are the access-token claims. Fields are only ever added, so older
// tokens keep decoding.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the subject at the time the token was minted.
	Username string `json:"username,omitempty"`

	// Roles held by the subject, e.g. ["ADMIN","USER"].
	Roles []string `json:"roles,omitempty"`
}

// NewAccessClaims builds claims for subject valid from now until now+ttl.
func NewAccessClaims(
	subject, username string,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Roles:    roles,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
