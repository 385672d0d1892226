package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/cityauth/internal/auth/http"
	"github.com/aussiebroadwan/cityauth/internal/auth/service"
	"github.com/aussiebroadwan/cityauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/cityauth/pkg/cryptox"
	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/aussiebroadwan/cityauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db *sqlite.Store

	// Services
	authService         *service.AuthService
	tokenService        *service.TokenService
	userService         *service.UserService
	roleChangeService   *service.RoleChangeService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "cityauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing and fail fast if it is unusable
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := httpx.SetTrustedProxies(app.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(databaseDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, _, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "schema_version", version)
	return nil
}

// databaseDSN builds a modernc sqlite DSN. Pragmas are applied on every new
// connection.
func databaseDSN(file string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + file + "?" + q.Encode()
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	secret := app.cfg.JWTSecret
	if secret == "" {
		secret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("AUTH_JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}

	tokens, err := service.NewTokenService([]byte(secret), app.cfg.Issuer, app.cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.authService = &service.AuthService{Store: app.db}
	app.userService = service.NewUserService(app.db, app.cfg.UserCacheTTL)
	app.roleChangeService = &service.RoleChangeService{
		Store: app.db,
		Users: app.userService,
	}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}
	if app.bootstrapService.Enabled() {
		app.logger.Info("bootstrap endpoint enabled")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RoleRequestRetention,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.RoleChangeService = app.roleChangeService
	router.BootstrapService = app.bootstrapService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
