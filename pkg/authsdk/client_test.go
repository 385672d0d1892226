package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginAndSession(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "wonderland" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorCodeUnauthorized, ErrorDescription: "invalid username or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{Token: "tok-" + req.Username, ExpiresIn: 3600})
	})
	mux.HandleFunc("GET /api/users/current-user-info", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-alice", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(UserResponse{ID: "u1", Username: "alice", Role: RoleUser, Roles: []string{RoleUser}})
	})
	mux.HandleFunc("GET /api/users/role-requests", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, RoleRequestPending, r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode([]RoleRequestResponse{{ID: "r1", Status: RoleRequestPending}})
	})
	mux.HandleFunc("POST /api/users/u1/role-request", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ValidationErrorResponse{
			Code:    ErrorCodeValidation,
			Message: "validation failed for some fields",
			Details: map[string]string{"role": "must be one of USER MODERATOR ADMIN"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := NewSDKClient(srv.URL + "/")

	t.Run("bad credentials", func(t *testing.T) {
		_, err := client.Login(ctx, "alice", "nope")
		require.True(t, IsStatus(err, http.StatusUnauthorized))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, ErrorCodeUnauthorized, apiErr.Code)
	})

	session, err := client.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	require.Equal(t, "tok-alice", session.AccessToken())

	t.Run("authenticated call", func(t *testing.T) {
		me, err := session.CurrentUser(ctx)
		require.NoError(t, err)
		require.Equal(t, "alice", me.Username)
		require.Equal(t, RoleUser, me.Role)
	})

	t.Run("query filter", func(t *testing.T) {
		reqs, err := session.ListRoleRequests(ctx, RoleRequestPending)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
	})

	t.Run("validation details", func(t *testing.T) {
		_, err := session.RequestRoleChange(ctx, "u1", "ROOT")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, ErrorCodeValidation, apiErr.Code)
		require.Contains(t, apiErr.Details, "role")
	})

	t.Run("expired session", func(t *testing.T) {
		expired := client.NewSessionFromToken("tok-alice", 0)
		_, err := expired.CurrentUser(ctx)
		require.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("unknown route", func(t *testing.T) {
		_, err := session.GetUser(ctx, "missing")
		require.True(t, IsStatus(err, http.StatusNotFound))
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	var ready atomic.Bool
	ready.Store(true)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Version: "v0.1.0"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready.Load() {
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Checks: &HealthChecks{Database: "ok", Schema: "v1"}})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "degraded", Checks: &HealthChecks{Database: "error: closed", Schema: "v1"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewSDKClient(srv.URL)
	ctx := context.Background()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "v0.1.0", live.Version)

	health, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1", health.Checks.Schema)

	ready.Store(false)
	health, err = client.GetReadiness(ctx)
	require.True(t, IsStatus(err, http.StatusServiceUnavailable))
	require.NotNil(t, health)
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "error: closed", health.Checks.Database)
}
