package http

import (
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

// BootstrapTokenHeader carries the pre-shared bootstrap token.
const BootstrapTokenHeader = "X-Bootstrap-Token"

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP handles the bootstrap endpoint for initial system setup.
//
//	@Summary		Bootstrap the first administrator
//	@Description	Creates the first user holding ADMIN and USER. Only available when a bootstrap token is configured, and only until an ADMIN exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string							true	"Bootstrap token for authorization"
//	@Param			request				body		authsdk.BootstrapRequest		true	"Administrator credentials"
//	@Success		201					{object}	authsdk.BootstrapResponse		"Administrator created"
//	@Failure		400					{object}	authsdk.ValidationErrorResponse	"Invalid request body or validation failed"
//	@Failure		401					{object}	authsdk.ErrorResponse			"Missing or invalid bootstrap token"
//	@Failure		404					{object}	authsdk.ErrorResponse			"Bootstrap not enabled (no token configured)"
//	@Failure		409					{object}	authsdk.ErrorResponse			"An administrator already exists"
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())

	if !h.BootstrapService.Enabled() {
		writeServiceError(w, r, service.ErrBootstrapDisabled)
		return
	}

	token := r.Header.Get(BootstrapTokenHeader)
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized,
			"bootstrap token is required in "+BootstrapTokenHeader+" header")
		return
	}

	var req authsdk.BootstrapRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	l.Info("bootstrapping administrator")
	admin, err := h.BootstrapService.Bootstrap(r.Context(), token, domain.BootstrapData{
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		Message: "Administrator created",
		User:    toUserResponse(admin),
	})
}
