// Package observability holds the slog setup shared by the CLI and server.
package observability

import (
	"log/slog"
	"os"
	"strings"

	"github.com/receiptsync/amazon-ynab-sync/internal/infrastructure/config"
)

// NewLogger builds a structured logger from logging config. Unknown levels
// and formats fall back to info/text rather than erroring; logging config
// should never be able to stop the program.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
