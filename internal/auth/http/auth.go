package http

import (
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

type RegisterHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService
}

// ServeHTTP registers a new user and logs them in.
//
//	@Summary		Register a user
//	@Description	Creates a user holding the USER role and returns an access token for it.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CredentialsRequest		true	"Username and password"
//	@Success		200		{object}	authsdk.TokenResponse			"Access token and lifetime in seconds"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Invalid body, blank password or invalid username"
//	@Failure		409		{object}	authsdk.ErrorResponse			"Username already exists"
//	@Failure		429		{object}	authsdk.ErrorResponse			"Rate limit exceeded"
//	@Router			/api/users/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CredentialsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	u, err := h.AuthService.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeToken(w, r, h.TokenService, u)
}

type LoginHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService
}

// ServeHTTP exchanges a username and password for an access token.
//
//	@Summary		Log in
//	@Description	Verifies the credentials and returns an access token carrying the user's current roles.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CredentialsRequest		true	"Username and password"
//	@Success		200		{object}	authsdk.TokenResponse			"Access token and lifetime in seconds"
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Invalid body"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid username or password"
//	@Failure		429		{object}	authsdk.ErrorResponse			"Rate limit exceeded"
//	@Router			/api/users/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CredentialsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	u, err := h.AuthService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeToken(w, r, h.TokenService, u)
}

func writeToken(w http.ResponseWriter, r *http.Request, tokens *service.TokenService, u domain.User) {
	issued, err := tokens.Issue(u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:     issued.Token,
		ExpiresIn: int64(issued.ExpiresIn.Seconds()),
	})
}
