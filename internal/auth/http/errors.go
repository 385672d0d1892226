package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// writeServiceError maps an error returned by a service to a response using
// the domain error kinds. Unclassified errors are logged and hidden behind a
// generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		// Never say which credential check failed.
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized, unauthorizedDescription(err))
	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, authsdk.ErrorCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, authsdk.ErrorCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, authsdk.ErrorCodeConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, authsdk.ErrorCodeInvalidState, err.Error())
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeServerError, "internal server error")
	}
}

func unauthorizedDescription(err error) string {
	if errors.Is(err, service.ErrBootstrapUnauthorized) {
		return "invalid bootstrap token"
	}
	return "invalid username or password"
}
