package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide structured logger. Output is always
// JSON on stdout; source locations are attached at debug level, where the
// extra cost is acceptable.
func (c *LoggerConfig) NewLogger() *slog.Logger {
	level := c.slogLevel()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	return slog.New(handler)
}

// slogLevel maps the configured level name to a slog level, defaulting to
// info for anything unrecognized.
func (c *LoggerConfig) slogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
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
