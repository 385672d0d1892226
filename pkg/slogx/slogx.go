package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

type Config struct {
	Service string
	Version string
	Env     string // "dev", "prod"
	Level   string // "debug", "info", "warn", "error"
	Format  string // "json", "text"

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New returns a configured logger and installs it as the slog default.
// Text output in dev is colourised.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	dev := cfg.Env == "dev"
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	switch {
	case strings.EqualFold(cfg.Format, "text") && dev:
		handler = tint.NewHandler(out, &tint.Options{
			AddSource:  true,
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	case strings.EqualFold(cfg.Format, "text"):
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{AddSource: dev, Level: level})
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
