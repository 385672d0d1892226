package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// RequireRole lets the request through only if the principal holds role.
func RequireRole(role string) Middleware {
	return RequireAnyRole(role)
}

// RequireAnyRole lets the request through if the principal holds at least
// one of roles. It must run after AuthnMiddleware.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			slogx.FromContext(r.Context()).Warn("forbidden: missing role",
				"required", roles,
				"roles", p.Roles,
			)
			WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
		})
	}
}
