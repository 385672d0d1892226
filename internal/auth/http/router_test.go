package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/aussiebroadwan/cityauth/pkg/cryptox"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

const testBootstrapToken = "bootstrap-secret"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cityauth-http-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	// httptest requests come from 192.0.2.1; treat it as the fronting proxy
	// so each call can present its own client address.
	if err := httpx.SetTrustedProxies([]string{"192.0.2.0/24"}); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	t      *testing.T
	router *Router
	store  *sqlite.Store
	ip     atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := service.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "cityauth-test", time.Hour)
	require.NoError(t, err)
	users := service.NewUserService(st, time.Minute)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter("test", st, logger)
	r.AuthService = &service.AuthService{Store: st}
	r.TokenService = tokens
	r.UserService = users
	r.RoleChangeService = &service.RoleChangeService{Store: st, Users: users}
	r.BootstrapService = &service.BootstrapService{Store: st, Token: testBootstrapToken}
	r.ApplyRoutes()

	return &testServer{t: t, router: r, store: st}
}

// do sends a request from a fresh client address so IP rate limits do not
// interfere across calls.
func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", s.ip.Load()/250, s.ip.Add(1)%250))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users/register", "", authsdk.CredentialsRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](s.t, rec).Token
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users/login", "", authsdk.CredentialsRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](s.t, rec).Token
}

func (s *testServer) bootstrapAdmin() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/v1/bootstrap", "",
		authsdk.BootstrapRequest{AdminUsername: "root", AdminPassword: "root-password"},
		BootstrapTokenHeader, testBootstrapToken,
	)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return s.login("root", "root-password")
}

func (s *testServer) me(token string) authsdk.UserResponse {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/users/current-user-info", token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.UserResponse](s.t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decode[authsdk.ErrorResponse](t, rec).Error)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/users/register", "", authsdk.CredentialsRequest{Username: "alice", Password: "wonderland"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	tok := decode[authsdk.TokenResponse](t, rec)
	require.NotEmpty(t, tok.Token)
	require.EqualValues(t, 3600, tok.ExpiresIn)

	t.Run("duplicate", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/register", "", authsdk.CredentialsRequest{Username: "alice", Password: "other"})
		requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)
	})

	t.Run("blank password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/register", "", authsdk.CredentialsRequest{Username: "bob", Password: "   "})
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/register", "", map[string]string{"username": "bob"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		v := decode[authsdk.ValidationErrorResponse](t, rec)
		require.Equal(t, authsdk.ErrorCodeValidation, v.Code)
		require.Equal(t, "required", v.Details["password"])
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/register", "", map[string]string{"username": "bob", "password": "pw", "role": "ADMIN"})
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("login", func(t *testing.T) {
		token := s.login("alice", "wonderland")
		me := s.me(token)
		require.Equal(t, "alice", me.Username)
		require.Equal(t, "USER", me.Role)
		require.Equal(t, []string{"USER"}, me.Roles)
	})

	t.Run("bad login", func(t *testing.T) {
		for _, creds := range []authsdk.CredentialsRequest{
			{Username: "alice", Password: "nope"},
			{Username: "nobody", Password: "wonderland"},
		} {
			rec := s.do(http.MethodPost, "/api/users/login", "", creds)
			requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
			require.Equal(t, "invalid username or password", decode[authsdk.ErrorResponse](t, rec).ErrorDescription)
		}
	})
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	token := s.register("alice", "wonderland")

	t.Run("missing", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/users/current-user-info", "", nil)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("tampered", func(t *testing.T) {
		b := []byte(token)
		last := len(b) - 2
		if b[last] == 'A' {
			b[last] = 'B'
		} else {
			b[last] = 'A'
		}
		rec := s.do(http.MethodGet, "/api/users/current-user-info", string(b), nil)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
	})

	t.Run("deleted user", func(t *testing.T) {
		admin := s.bootstrapAdmin()
		me := s.me(token)

		rec := s.do(http.MethodDelete, "/api/users/"+me.ID, admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(http.MethodGet, "/api/users/current-user-info", token, nil)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
	})
}

func TestBearerAuth_StoreFailure(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	token := s.register("alice", "wonderland")

	require.NoError(t, s.store.Close())

	rec := s.do(http.MethodGet, "/api/users/current-user-info", token, nil)
	requireError(t, rec, http.StatusInternalServerError, authsdk.ErrorCodeServerError)
	require.Empty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestUsersEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	admin := s.bootstrapAdmin()
	alice := s.register("alice", "wonderland")
	bob := s.register("bob", "builder")
	bobID := s.me(bob).ID

	rec := s.do(http.MethodGet, "/api/users/get-users", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]authsdk.UserResponse](t, rec)
	require.Len(t, users, 3)
	require.Equal(t, "root", users[0].Username)
	require.Equal(t, "ADMIN", users[0].Role)
	require.NotContains(t, rec.Body.String(), "argon2")

	rec = s.do(http.MethodGet, "/api/users/"+bobID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "bob", decode[authsdk.UserResponse](t, rec).Username)

	rec = s.do(http.MethodGet, "/api/users/missing", alice, nil)
	requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)

	rec = s.do(http.MethodDelete, "/api/users/"+bobID, alice, nil)
	requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	rec = s.do(http.MethodDelete, "/api/users/"+bobID, admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/api/users/"+bobID, admin, nil)
	requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)
}

func TestBootstrapEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	body := authsdk.BootstrapRequest{AdminUsername: "root", AdminPassword: "root-password"}

	rec := s.do(http.MethodPost, "/v1/bootstrap", "", body)
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	rec = s.do(http.MethodPost, "/v1/bootstrap", "", body, BootstrapTokenHeader, "wrong")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	rec = s.do(http.MethodPost, "/v1/bootstrap", "", authsdk.BootstrapRequest{AdminUsername: "root", AdminPassword: "short"},
		BootstrapTokenHeader, testBootstrapToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode[authsdk.ValidationErrorResponse](t, rec).Details, "admin_password")

	rec = s.do(http.MethodPost, "/v1/bootstrap", "", body, BootstrapTokenHeader, testBootstrapToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[authsdk.BootstrapResponse](t, rec)
	require.Equal(t, "ADMIN", resp.User.Role)
	require.Equal(t, []string{"ADMIN", "USER"}, resp.User.Roles)

	rec = s.do(http.MethodPost, "/v1/bootstrap", "", authsdk.BootstrapRequest{AdminUsername: "root2", AdminPassword: "root-password"},
		BootstrapTokenHeader, testBootstrapToken)
	requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t)
		s.router.BootstrapService.Token = ""

		rec := s.do(http.MethodPost, "/v1/bootstrap", "", body, BootstrapTokenHeader, testBootstrapToken)
		requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)
	})
}

// TestRoleChangeScenario walks alice from signup to MODERATOR through the
// public API.
func TestRoleChangeScenario(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	admin := s.bootstrapAdmin()

	alice := s.register("alice", "wonderland")
	aliceID := s.me(alice).ID

	// Unknown role
	rec := s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", alice, authsdk.RoleChangeRequestBody{Role: "SUPERUSER"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, authsdk.ErrorCodeValidation, decode[authsdk.ValidationErrorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", alice, authsdk.RoleChangeRequestBody{Role: "MODERATOR"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decode[authsdk.RoleRequestSubmittedResponse](t, rec)
	require.Equal(t, "Role change request submitted successfully", submitted.Message)
	require.Equal(t, "PENDING", submitted.Request.Status)
	require.Equal(t, "MODERATOR", submitted.Request.RequestedRole)
	requestID := submitted.Request.ID

	// Duplicate pending request
	rec = s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", alice, authsdk.RoleChangeRequestBody{Role: "MODERATOR"})
	requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)

	// Alice cannot see or decide requests
	rec = s.do(http.MethodGet, "/api/users/role-requests", alice, nil)
	requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	rec = s.do(http.MethodPost, "/api/users/role-requests/"+requestID+"/approve", alice, nil)
	requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	rec = s.do(http.MethodGet, "/api/users/role-requests?status=PENDING", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]authsdk.RoleRequestResponse](t, rec)
	require.Len(t, pending, 1)
	require.Equal(t, requestID, pending[0].ID)

	rec = s.do(http.MethodGet, "/api/users/role-requests?status=bogus", admin, nil)
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	rec = s.do(http.MethodPost, "/api/users/role-requests/"+requestID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Role change request approved", decode[authsdk.MessageResponse](t, rec).Message)

	// Decided requests are final
	rec = s.do(http.MethodPost, "/api/users/role-requests/"+requestID+"/reject", admin, nil)
	requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeInvalidState)
	rec = s.do(http.MethodPost, "/api/users/role-requests/missing/approve", admin, nil)
	requireError(t, rec, http.StatusNotFound, authsdk.ErrorCodeNotFound)

	// The stored roles apply immediately; a new login carries them in the token.
	me := s.me(alice)
	require.Equal(t, "MODERATOR", me.Role)
	require.Equal(t, []string{"MODERATOR", "USER"}, me.Roles)
	me = s.me(s.login("alice", "wonderland"))
	require.Equal(t, "MODERATOR", me.Role)

	rec = s.do(http.MethodGet, "/api/users/role-requests", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]authsdk.RoleRequestResponse](t, rec)
	require.Len(t, all, 1)
	require.Equal(t, "APPROVED", all[0].Status)
	require.NotEmpty(t, all[0].DecidedBy)
	require.NotNil(t, all[0].DecidedAt)

	t.Run("reject", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", alice, authsdk.RoleChangeRequestBody{Role: "ADMIN"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		id := decode[authsdk.RoleRequestSubmittedResponse](t, rec).Request.ID

		rec = s.do(http.MethodPost, "/api/users/role-requests/"+id+"/reject", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Role change request rejected", decode[authsdk.MessageResponse](t, rec).Message)
		require.Equal(t, "MODERATOR", s.me(alice).Role)
	})

	t.Run("not for another user", func(t *testing.T) {
		bob := s.register("bob", "builder")
		rec := s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", bob, authsdk.RoleChangeRequestBody{Role: "ADMIN"})
		requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	})
}

func TestConcurrentApprove(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	admin := s.bootstrapAdmin()
	alice := s.register("alice", "wonderland")
	aliceID := s.me(alice).ID

	rec := s.do(http.MethodPost, "/api/users/"+aliceID+"/role-request", alice, authsdk.RoleChangeRequestBody{Role: "MODERATOR"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[authsdk.RoleRequestSubmittedResponse](t, rec).Request.ID

	const workers = 2
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/users/role-requests/"+id+"/approve", nil)
			req.Header.Set("Authorization", "Bearer "+admin)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	require.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)
	require.Equal(t, []string{"MODERATOR", "USER"}, s.me(alice).Roles)
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)

	rec = s.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	health := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "v1", health.Checks.Schema)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cityauth_http_request_duration_seconds")

	rec = s.do(http.MethodGet, "/livez", "", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
