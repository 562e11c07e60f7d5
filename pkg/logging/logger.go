package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a JSON logger for standalone tools that do not load the
// service config. LOG_LEVEL picks the level.
func NewLogger(w io.Writer, service string) *slog.Logger {
	level := slog.LevelInfo

	if env := strings.ToLower(os.Getenv("LOG_LEVEL")); env != "" {
		switch env {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
		slog.Int("pid", os.Getpid()),
	)
	return logger
}
