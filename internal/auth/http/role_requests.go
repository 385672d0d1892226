package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
)

const (
	msgRoleRequestSubmitted = "Role change request submitted successfully"
	msgRoleRequestApproved  = "Role change request approved"
	msgRoleRequestRejected  = "Role change request rejected"
)

// RoleRequestsHandler serves the role change workflow endpoints.
type RoleRequestsHandler struct {
	RoleChangeService *service.RoleChangeService
}

// HandleCreate files a role change request for the user in the path.
//
//	@Summary		Request a role change
//	@Description	Files a PENDING request for an additional role. Users may only file for themselves; an ADMIN may file for anyone.
//	@Tags			Role Requests
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string								true	"User ID"
//	@Param			request	body		authsdk.RoleChangeRequestBody		true	"Requested role"
//	@Success		201		{object}	authsdk.RoleRequestSubmittedResponse
//	@Failure		400		{object}	authsdk.ValidationErrorResponse	"Unknown role"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Missing, invalid or expired token"
//	@Failure		403		{object}	authsdk.ErrorResponse			"Requesting for another user"
//	@Failure		404		{object}	authsdk.ErrorResponse			"User not found"
//	@Failure		409		{object}	authsdk.ErrorResponse			"Role already held or request already pending"
//	@Router			/api/users/{id}/role-request [post].
func (h *RoleRequestsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	var body authsdk.RoleChangeRequestBody
	if !decodeRequest(w, r, &body) {
		return
	}

	req, err := h.RoleChangeService.RequestRoleChange(r.Context(), actor, r.PathValue("id"), body.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RoleRequestSubmittedResponse{
		Message: msgRoleRequestSubmitted,
		Request: toRoleRequestResponse(req),
	})
}

// HandleList returns role change requests, oldest first.
//
//	@Summary		List role change requests
//	@Tags			Role Requests
//	@Produce		json
//	@Security		BearerAuth
//	@Param			status	query		string	false	"Only requests in this status"	Enums(PENDING, APPROVED, REJECTED)
//	@Success		200		{array}		authsdk.RoleRequestResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Unknown status"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"ADMIN role required"
//	@Router			/api/users/role-requests [get].
func (h *RoleRequestsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	var filter domain.RoleRequestFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseRoleRequestStatus(raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		filter.Status = status
	}

	reqs, err := h.RoleChangeService.ListRequests(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]authsdk.RoleRequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRoleRequestResponse(req))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleApprove grants the requested role.
//
//	@Summary		Approve a role change request
//	@Tags			Role Requests
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Role change request ID"
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"ADMIN role required"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Request not found"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Request is no longer pending"
//	@Router			/api/users/role-requests/{id}/approve [post].
func (h *RoleRequestsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RoleChangeService.Approve, msgRoleRequestApproved)
}

// HandleReject declines the request.
//
//	@Summary		Reject a role change request
//	@Tags			Role Requests
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Role change request ID"
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"ADMIN role required"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Request not found"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Request is no longer pending"
//	@Router			/api/users/role-requests/{id}/reject [post].
func (h *RoleRequestsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RoleChangeService.Reject, msgRoleRequestRejected)
}

func (h *RoleRequestsHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actor domain.Actor, requestID string) error,
	message string,
) {
	actor, ok := actorFrom(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	if err := fn(r.Context(), actor, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: message})
}

func toRoleRequestResponse(req domain.RoleChangeRequest) authsdk.RoleRequestResponse {
	return authsdk.RoleRequestResponse{
		ID:            req.ID,
		UserID:        req.UserID,
		RequestedRole: req.RequestedRole.String(),
		Status:        req.Status.String(),
		DecidedBy:     req.DecidedBy,
		DecidedAt:     req.DecidedAt,
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}
