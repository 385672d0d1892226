package http

import (
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

// UsersHandler serves the user directory endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleCurrent returns the caller.
//
//	@Summary		Current user
//	@Description	Returns the authenticated user with its primary role and full role set.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Router			/api/users/current-user-info [get].
func (h *UsersHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	u, err := h.UserService.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleList returns every user.
//
//	@Summary		List users
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Router			/api/users/get-users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet returns one user.
//
//	@Summary		Get user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/api/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete removes a user and their role requests.
//
//	@Summary		Delete user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"ADMIN role required"
//	@Failure		404	{object}	authsdk.ErrorResponse	"User not found"
//	@Router			/api/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	if err := h.UserService.DeleteUser(r.Context(), actor, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.PrimaryRole().String(),
		Roles:    u.RoleNames(),
	}
}
