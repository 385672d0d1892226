package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/domain"
	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"

	_ "github.com/aussiebroadwan/cityauth/api/auth" // Swagger docs
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init -g router.go -d ./,../../../pkg/authsdk -o ../../../api/auth --packageName auth --outputTypes go

// Store is what the health endpoints need from the database.
type Store interface {
	Pinger
	SchemaVersioner
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        Store

	AuthService       *service.AuthService
	TokenService      *service.TokenService
	UserService       *service.UserService
	RoleChangeService *service.RoleChangeService
	BootstrapService  *service.BootstrapService
}

func NewRouter(buildVersion string, st Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// The metrics middleware sits innermost so it sees the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.HTTPMiddleware,
	}
	r.handler = httpx.Chain(r.Mux, r.middlewares...)

	return r
}

// ApplyRoutes registers every route. The service fields must be set first.
func (r *Router) ApplyRoutes() {
	authn := httpx.AuthnMiddleware(&bearerResolver{
		tokens: r.TokenService,
		users:  r.UserService,
	})

	r.registerAuth()
	r.registerUsers(authn)
	r.registerRoleRequests(authn)
	r.registerBootstrap()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			cityauth Authentication Service API
//	@version		0.1.0
//	@description	User registration, login and the role change approval workflow.
//	@description
//	@description				Access tokens are HS256 JWTs. Present them as "Authorization: Bearer {token}".
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/cityauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	register := &RegisterHandler{AuthService: r.AuthService, TokenService: r.TokenService}
	login := &LoginHandler{AuthService: r.AuthService, TokenService: r.TokenService}

	// Credential endpoints - strict rate limit by IP against brute force
	r.Mux.Handle("POST /api/users/register",
		httpx.Chain(register,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/users/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers(authn httpx.Middleware) {
	h := &UsersHandler{UserService: r.UserService}

	secured := func(fn http.HandlerFunc, mws ...httpx.Middleware) http.Handler {
		mws = append([]httpx.Middleware{authn}, mws...)
		mws = append(mws, httpx.RateLimitByUser(httpx.ModerateLimit))
		return httpx.Chain(fn, mws...)
	}

	r.Mux.Handle("GET /api/users/current-user-info", secured(h.HandleCurrent))
	r.Mux.Handle("GET /api/users/get-users", secured(h.HandleList))
	r.Mux.Handle("GET /api/users/{id}", secured(h.HandleGet))
	r.Mux.Handle("DELETE /api/users/{id}", secured(h.HandleDelete, httpx.RequireRole(domain.RoleAdmin.String())))
}

func (r *Router) registerRoleRequests(authn httpx.Middleware) {
	h := &RoleRequestsHandler{RoleChangeService: r.RoleChangeService}
	admin := httpx.RequireRole(domain.RoleAdmin.String())

	// Submitting is open to any authenticated user; the service checks
	// ownership of the target.
	r.Mux.Handle("POST /api/users/{id}/role-request",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /api/users/role-requests",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authn,
			admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/users/role-requests/{id}/approve",
		httpx.Chain(http.HandlerFunc(h.HandleApprove),
			authn,
			admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/users/role-requests/{id}/reject",
		httpx.Chain(http.HandlerFunc(h.HandleReject),
			authn,
			admin,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerBootstrap() {
	// One-time setup endpoint, strict rate limit by IP
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /metrics",
		httpx.Chain(promhttp.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("/swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
