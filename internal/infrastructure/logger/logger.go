// Package logger builds the structured logger used across kin.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

// New builds a logger from the log settings. Logs go to stderr so command
// output on stdout stays clean.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter builds a logger writing to w. Format "json" selects the
// JSON handler; anything else gets text.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Scope returns the attribute naming the component a log line comes from.
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns the attribute carrying an error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
