package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

// bearerResolver turns a bearer token into the caller it identifies. The
// token proves identity; roles come from the stored user so a deleted user
// is locked out and an approved role applies to authorization immediately.
// Token and unknown-user failures wrap httpx.ErrUnauthenticated; a store
// failure is returned as is.
type bearerResolver struct {
	tokens *service.TokenService
	users  *service.UserService
}

func (b *bearerResolver) AuthenticateBearer(ctx context.Context, token string) (httpx.Principal, error) {
	id, err := b.tokens.Validate(token)
	if err != nil {
		return httpx.Principal{}, fmt.Errorf("%w: %w", httpx.ErrUnauthenticated, err)
	}

	u, err := b.users.GetUserByID(ctx, id.UserID)
	if errors.Is(err, service.ErrUserNotFound) {
		return httpx.Principal{}, fmt.Errorf("%w: %w", httpx.ErrUnauthenticated, service.ErrInvalidToken)
	}
	if err != nil {
		return httpx.Principal{}, err
	}

	return httpx.Principal{
		UserID:   u.ID,
		Username: u.Username,
		Roles:    u.RoleNames(),
	}, nil
}

// actorFrom builds the explicit identity passed to services from the
// principal stored by the authn middleware.
func actorFrom(r *http.Request) (domain.Actor, bool) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		return domain.Actor{}, false
	}

	roles := make([]domain.Role, 0, len(p.Roles))
	for _, name := range p.Roles {
		if role, err := domain.ParseRole(name); err == nil {
			roles = append(roles, role)
		}
	}
	return domain.Actor{UserID: p.UserID, Roles: roles}, true
}
