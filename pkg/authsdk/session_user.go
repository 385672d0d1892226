package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CurrentUser returns the user the session belongs to, as currently stored.
func (s *Session) CurrentUser(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/users/current-user-info", nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user, oldest first.
func (s *Session) ListUsers(ctx context.Context) ([]UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/users/get-users", nil, nil)
	if err != nil {
		return nil, err
	}

	var users []UserResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one user by id.
func (s *Session) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user. Requires ADMIN.
func (s *Session) DeleteUser(ctx context.Context, userID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
