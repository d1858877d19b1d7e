package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yanqian/carefinder/internal/infra/config"
)

// New constructs a JSON slog logger honoring the configured level.
func New(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New with an explicit sink, used by the CLI to keep stdout for reports.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler).With("service", "carefinder")
}

func parseLevel(level string) slog.Leveler {
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
