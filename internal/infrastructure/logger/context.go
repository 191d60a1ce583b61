package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Context keys read by ContextLogger and the HTTP middleware
const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the request ID in ctx and returns the context with a
// logger carrying it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return tag(ctx, logger, RequestIDKey, requestID)
}

// WithUserID records the authenticated user in ctx and returns the context
// with a logger carrying it
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return tag(ctx, logger, UserIDKey, userID)
}

func tag(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	tagged := logger.With(zap.String(string(key), value))
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, tagged), tagged
}

// GetRequestID returns the request ID in ctx, if any
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns the user ID in ctx, if any
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// Fields returns the correlation fields found in ctx: trace and span IDs of a
// valid span, then request and user IDs when set.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, key := range []contextKey{RequestIDKey, UserIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	return fields
}

// ContextLogger adds the correlation fields of its context to every entry
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger over the logger stored in ctx
func L(ctx context.Context) *ContextLogger {
	return WithLogger(ctx, FromContext(ctx))
}

// WithLogger returns a ContextLogger over logger instead of the stored one
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: logger}
}

// With returns a child carrying fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return WithLogger(cl.ctx, cl.base().With(fields...))
}

func (cl *ContextLogger) base() *zap.Logger {
	if cl.logger == nil {
		return zap.NewNop()
	}
	return cl.logger
}

func (cl *ContextLogger) write(level func(*zap.Logger, string, ...zap.Field), msg string, fields []zap.Field) {
	l := cl.base()
	if extra := Fields(cl.ctx); len(extra) > 0 {
		l = l.With(extra...)
	}
	level(l, msg, fields...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.write((*zap.Logger).Debug, msg, fields)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.write((*zap.Logger).Info, msg, fields)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.write((*zap.Logger).Warn, msg, fields)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.write((*zap.Logger).Error, msg, fields)
}
