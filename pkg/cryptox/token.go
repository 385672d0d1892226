package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Token sizes in bytes before encoding.
const (
	TokenSize128 = 16
	TokenSize256 = 32
)

var tokenEncoding = base64.RawURLEncoding

// GenerateToken returns size random bytes encoded as unpadded base64url,
// suitable for secrets and headers.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// MustGenerateToken panics where GenerateToken would fail.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(err)
	}
	return token
}

// TokensEqual compares a presented secret with the expected one in constant
// time. Both sides are hashed first so the comparison does not leak the
// expected length either. An empty expected token never matches.
func TokensEqual(presented, expected string) bool {
	if expected == "" {
		return false
	}
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
