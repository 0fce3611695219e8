package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by NewContext. Without one it falls
// back to the process default tagged as "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return Default().WithComponent("unknown")
}

// RequestSummary is what the trace middleware knows once a handler returns.
type RequestSummary struct {
	Status   int
	Duration time.Duration
	ClientIP string
}

// StructuredLogger writes the records every service shares (requests, tag
// edits, failures) with a fixed field layout so they can be grepped.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= http.StatusInternalServerError:
		return slog.LevelError
	case code >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP)
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs 4xx at warn and 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, sum RequestSummary) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(sum.Status, sum.Duration.Milliseconds(), sum.Status < http.StatusBadRequest).
		WithClientIP(sum.ClientIP)
	sl.logger.Log(ctx, statusLevel(sum.Status), "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTagEdit(ctx context.Context, op string, txnCount int, tags []string) {
	fields := NewFields().WithTagEdit(op, txnCount, tags).WithOperation(OpTag)
	sl.logger.InfoContext(ctx, "Tags updated", fields.ToSlice()...)
}

// LogError adds err and operation to fields, which may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
