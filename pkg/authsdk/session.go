package authsdk

import (
	"sync"
	"time"
)

// expiryBuffer is subtracted from the token lifetime so a request is not
// sent with a token about to expire in flight.
const expiryBuffer = 5 * time.Second

// Session is an authenticated session for one user. Tokens cannot be
// refreshed; once expired, log in again.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime > 2*expiryBuffer {
		lifetime -= expiryBuffer
	}

	return &Session{
		client:      client,
		accessToken: tokenResp.Token,
		expiresAt:   time.Now().Add(lifetime),
	}
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt returns when the session stops being usable.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) validToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.accessToken, nil
}
