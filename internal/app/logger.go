package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/macrolog-backend/internal/config"
)

// NewLogger builds the process logger from LogConfig, writes it to stderr
// and installs it with slog.SetDefault.
//
// Format "json" is meant for production; "text" adds source locations for
// local runs. Level is debug, info, warn or error and defaults to info.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	text := strings.EqualFold(strings.TrimSpace(cfg.Format), "text")
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: text,
	}

	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("version", Version))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
