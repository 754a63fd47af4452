// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugEnv forces debug logging when set to any non-empty value.
const DebugEnv = "APLEDGER_DEBUG"

var (
	Logger   = slog.Default()
	logLevel = new(slog.LevelVar)
)

// InitLogger initializes the global logger writing to w at the given level.
// Set APLEDGER_DEBUG=1 environment variable to enable debug logging.
func InitLogger(w io.Writer, level slog.Level) {
	if os.Getenv(DebugEnv) != "" {
		level = slog.LevelDebug
	}
	logLevel.Set(level)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		// Remove timestamp and level for cleaner CLI output
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	})

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// SetLogLevel changes the level of the global logger at runtime.
func SetLogLevel(level slog.Level) { logLevel.Set(level) }

// LogLevel reports the current level of the global logger.
func LogLevel() slog.Level { return logLevel.Level() }

// ParseLogLevel accepts debug, info, warn (or warning) and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
}

// Debug logs a debug message (only shown when the level is debug)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
