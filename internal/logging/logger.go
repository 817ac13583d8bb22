package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FromContext returns a zerolog.Logger stored in context, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// Request returns the request-scoped logger when one is stored, else fallback.
// Either way the request id, if present, is attached.
func Request(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	if id := RequestID(ctx); id != "" {
		return fallback.With().Str("request_id", id).Logger()
	}
	return fallback
}

type loggerKey struct{}

type requestIDKey struct{}

// New builds a structured logger with sane defaults for JSON logs.
func New(appName, env, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339Nano,
		NoColor:    env == "production",
	}
	logger := zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()
	return logger
}

// ParseLevel maps a textual level to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// IntoContext injects a logger into context for downstream use.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithRequestID stores the request id alongside the logger.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
