package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// ErrUnauthenticated marks an Authenticator failure caused by the token
// itself. Any other error is treated as a server fault.
var ErrUnauthenticated = errors.New("httpx: unauthenticated")

// Authenticator resolves a raw bearer token to the caller it identifies.
// Rejected tokens must return an error wrapping ErrUnauthenticated.
type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (Principal, error)
}

// AuthnMiddleware requires a valid bearer token and stores the resolved
// Principal in the request context. Every token failure is a plain 401 so
// callers cannot tell which check failed; other errors are an opaque 500.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, err := a.AuthenticateBearer(ctx, raw)
			if err != nil && !errors.Is(err, ErrUnauthenticated) {
				log.Error("bearer authentication error", "err", err)
				WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}
			if err != nil {
				log.Warn("bearer authentication failed", "err", err)
				writeBearerError(w, "invalid or expired token")
				return
			}

			ctx = WithPrincipal(ctx, p)
			ctx = slogx.With(ctx, "user_id", p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc)
}
