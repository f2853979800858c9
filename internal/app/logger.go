package app

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger creates a logger writing to outW. It does not set the global
// logger, allowing for isolated logger instances. Unknown levels fall back
// to info.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if level <= slog.LevelDebug {
		handlerOpts.AddSource = true
	}

	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
