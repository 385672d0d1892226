package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RequestRoleChange asks for role to be granted to userID. Users may only
// ask for themselves unless they are ADMIN.
func (s *Session) RequestRoleChange(ctx context.Context, userID, role string) (*RoleRequestSubmittedResponse, error) {
	body, err := json.Marshal(RoleChangeRequestBody{Role: role})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	path := "/api/users/" + url.PathEscape(userID) + "/role-request"

	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var out RoleRequestSubmittedResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRoleRequests returns role change requests oldest first. An empty status
// returns all of them. Requires ADMIN.
func (s *Session) ListRoleRequests(ctx context.Context, status string) ([]RoleRequestResponse, error) {
	path := "/api/users/role-requests"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var reqs []RoleRequestResponse
	if err := decodeJSON(resp, &reqs, http.StatusOK); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ApproveRoleRequest grants the requested role. Requires ADMIN.
func (s *Session) ApproveRoleRequest(ctx context.Context, requestID string) (*MessageResponse, error) {
	return s.decideRoleRequest(ctx, requestID, "approve")
}

// RejectRoleRequest declines the request. Requires ADMIN.
func (s *Session) RejectRoleRequest(ctx context.Context, requestID string) (*MessageResponse, error) {
	return s.decideRoleRequest(ctx, requestID, "reject")
}

func (s *Session) decideRoleRequest(ctx context.Context, requestID, action string) (*MessageResponse, error) {
	path := "/api/users/role-requests/" + url.PathEscape(requestID) + "/" + action

	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
