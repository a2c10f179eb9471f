// Package log holds the process-wide zap logger used by the cepr binaries.
// Library packages take a *zap.Logger instead; Zap hands them this one.
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance.
var Logger = newLogger(os.Getenv("LOG_LEVEL"))

func newLogger(level string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// parseLevel maps LOG_LEVEL onto a zap level, defaulting to info.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Zap returns the desugared global logger, for cep.WithLogger and
// other structured consumers.
func Zap() *zap.Logger { return Logger.Desugar() }

// Named returns a sugared child logger tagged with name.
func Named(name string) *zap.SugaredLogger { return Logger.Named(name) }

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() { _ = Logger.Sync() }

// Info logs a message at info level with optional key-value pairs.
func Info(msg string, kv ...any) { Logger.Infow(msg, kv...) }

// Infof logs a formatted message at info level.
func Infof(format string, a ...any) { Logger.Infof(format, a...) }

// Warn logs a message at warn level with optional key-value pairs.
func Warn(msg string, kv ...any) { Logger.Warnw(msg, kv...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, a ...any) { Logger.Warnf(format, a...) }

// Error logs a message at error level with optional key-value pairs.
func Error(msg string, kv ...any) { Logger.Errorw(msg, kv...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, a ...any) { Logger.Errorf(format, a...) }

// Debug logs a message at debug level with optional key-value pairs.
func Debug(msg string, kv ...any) { Logger.Debugw(msg, kv...) }

// Fatal logs a message at fatal level with optional key-value pairs,
// then calls os.Exit(1).
func Fatal(msg string, kv ...any) { Logger.Fatalw(msg, kv...) }

// Fatalf logs a formatted message at fatal level, then calls os.Exit(1).
func Fatalf(format string, a ...any) { Logger.Fatalf(format, a...) }
