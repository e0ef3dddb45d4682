package internal

import (
	"io"
	"log/slog"
	"os"
)

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// SetupLogger installs a text slog handler at the named level as the default
// logger. Unrecognized level names fall back to info.
func SetupLogger(level string) {
	SetupLoggerTo(os.Stderr, level)
}

// SetupLoggerTo is SetupLogger writing to w, for tests.
func SetupLoggerTo(w io.Writer, level string) {
	lvl, ok := logLevels[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	if !ok {
		slog.Warn("unknown log level, defaulting to info", "level", level)
	}
}
