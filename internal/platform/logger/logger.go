package logger

import (
	"dealwire/internal/config"
	"io"
	"log/slog"
	"os"
	"strings"
)

func NewLogger(cfg config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	format := "json"
	if cfg.Logger != nil {
		switch strings.ToLower(cfg.Logger.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		format = strings.ToLower(cfg.Logger.Format)
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true, // critical for incident debugging
	}
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("env", cfg.Service.Env),
		slog.String("address", cfg.Service.Add),
		slog.Int("pid", os.Getpid()),
	)
	slog.SetDefault(logger)
	return logger
}
