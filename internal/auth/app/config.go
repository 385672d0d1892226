package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/cityauth/pkg/httpx"
	"github.com/aussiebroadwan/cityauth/pkg/jwtx"
	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string        // Optional: issuer claim for tokens (default: cityauth)
	JWTSecret      string        // Optional: HS256 secret, at least 32 bytes (default: random per process)
	TokenTTL       time.Duration // Optional: access token lifetime (default: 1h)
	BootstrapToken string        // Optional: token required to perform bootstrap

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	RoleRequestRetention time.Duration // How long decided role requests are kept, 0 keeps them forever (default: 0)
	UserCacheTTL         time.Duration // How long looked-up users are cached, 0 disables the cache (default: 30s)
	TrustedProxies       []string      // Proxy CIDRs whose X-Forwarded-For is believed for rate limiting (default: none)
}

// LoadEnvFile loads variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "cityauth"),
		JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
		TokenTTL:       getEnvDurationOrDefault("AUTH_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"), // Optional: if set, required to perform bootstrap

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		RoleRequestRetention: getEnvDurationOrDefault("ROLE_REQUEST_RETENTION", 0),
		UserCacheTTL:         getEnvDurationOrDefault("USER_CACHE_TTL", 30*time.Second),
		TrustedProxies:       getEnvListOrDefault("TRUSTED_PROXIES", nil),
	}
}

// Validate rejects settings the service cannot start with. An empty
// JWTSecret is allowed; New generates one.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.RoleRequestRetention < 0 {
		errs = append(errs, errors.New("ROLE_REQUEST_RETENTION must not be negative"))
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
