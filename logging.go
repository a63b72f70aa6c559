package gocmocka

import (
	"log/slog"
	"os"
)

// logLevel backs the runner's own operational logging (component I):
// distinct from per-test diagnostics, which flow through the error buffer
// and the output formatters instead.
var logLevel = new(slog.LevelVar)

var pkgLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

// ConfigureLogging sets up the package's logger level from the
// GOCMOCKA_LOG_LEVEL environment variable (DEBUG|WARN|ERROR, default INFO).
// Mirrors the teacher's ConfigureLogging/SOP_LOG_LEVEL pair.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)
	switch os.Getenv("GOCMOCKA_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}
}

// SetLogLevel overrides the runner's log level programmatically.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

func logger() *slog.Logger {
	return pkgLogger
}

func init() {
	ConfigureLogging()
}
