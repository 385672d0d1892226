package domain

import "time"

// TokenIdentity is what a validated access token asserts about its bearer.
type TokenIdentity struct {
	UserID    string
	Username  string
	Roles     []Role
	ExpiresAt time.Time
}

// IssuedToken is a freshly minted access token and its lifetime.
type IssuedToken struct {
	Token     string
	ExpiresIn time.Duration
}
