package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	base := slog.Default()
	return &Logger{
		Logger:    base.With(FieldComponent, "unknown"),
		base:      base,
		component: "unknown",
	}
}

// loggerFor prefers the request-scoped logger in ctx, keeping this logger's component.
func (sl *StructuredLogger) loggerFor(ctx context.Context) *Logger {
	if reqLogger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return reqLogger.WithComponent(sl.logger.Component())
	}
	return sl.logger
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogCommitted logs a ledger operation that changed a balance.
func (sl *StructuredLogger) LogCommitted(ctx context.Context, op, userID, entityID string, fields LogFields) {
	fields = fields.WithOperation(op).WithEntity(entityID).WithLedger(userID, "", "", "")
	sl.loggerFor(ctx).InfoContext(ctx, "Ledger operation committed", fields.ToSlice()...)
}

// LogRejected logs a ledger operation that ended without a commit. Persistence
// failures are logged at error level, every other kind at warn.
func (sl *StructuredLogger) LogRejected(ctx context.Context, op, userID string, err error, kind string) {
	level := slog.LevelWarn
	if kind == "persistence_failure" {
		level = slog.LevelError
	}
	fields := NewFields().WithOperation(op).WithLedger(userID, "", "", "").WithError(err, kind)
	sl.loggerFor(ctx).Log(ctx, level, "Ledger operation rejected", fields.ToSlice()...)
}
