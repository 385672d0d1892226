package httpx

import (
	"context"
	"slices"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// Principal is the authenticated caller as resolved by AuthnMiddleware.
type Principal struct {
	UserID   string
	Username string
	Roles    []string
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal stored by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}
