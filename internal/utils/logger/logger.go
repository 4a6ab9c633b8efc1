package logger

import (
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"reposync/internal/config"
	"reposync/internal/utils/logger/handlers/slogpretty"
)

// New создает логгер для окружения: local цветной текст, dev JSON с debug, prod JSON с info
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// NewWithLevel как New, но уровень задается явно; пустой или неизвестный уровень оставляет уровень окружения
func NewWithLevel(env, level string) *slog.Logger {
	lvl, ok := parseLevel(level)
	if !ok {
		return New(env)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == config.EnvLocal {
		return slog.New(slogpretty.New(os.Stdout, slogpretty.Options{SlogOpts: opts}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func setupPrettySlog() *slog.Logger {
	h := slogpretty.New(os.Stdout, slogpretty.Options{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	})
	return slog.New(h)
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
