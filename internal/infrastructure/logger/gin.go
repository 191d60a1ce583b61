package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys shared with the HTTP middleware
const (
	GinRequestIDKey = "request_id"
	GinUserIDKey    = "user_id"
)

// AccessLogOption configures GinMiddleware
type AccessLogOption func(*accessLog)

type accessLog struct {
	logger *zap.Logger
	quiet  map[string]struct{}
}

// WithQuietPaths drops the access entry of successful requests to paths.
// Probes such as /health would otherwise dominate the log.
func WithQuietPaths(paths ...string) AccessLogOption {
	return func(a *accessLog) {
		for _, p := range paths {
			a.quiet[p] = struct{}{}
		}
	}
}

// GinMiddleware logs one entry per request and stores a request-scoped
// logger in the request context for L(ctx)
func GinMiddleware(logger *zap.Logger, opts ...AccessLogOption) gin.HandlerFunc {
	a := &accessLog{logger: logger, quiet: map[string]struct{}{}}
	for _, opt := range opts {
		opt(a)
	}
	return a.handle
}

func (a *accessLog) handle(c *gin.Context) {
	start := time.Now()
	req := c.Request

	reqLogger := a.logger.With(
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)
	ctx := WithContext(req.Context(), reqLogger)
	if requestID := c.GetString(GinRequestIDKey); requestID != "" {
		ctx, reqLogger = WithRequestID(ctx, reqLogger, requestID)
	}
	c.Request = req.WithContext(ctx)

	c.Next()

	status := c.Writer.Status()
	if _, quiet := a.quiet[req.URL.Path]; quiet && status < http.StatusBadRequest {
		return
	}

	fields := []zap.Field{
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("body_size", c.Writer.Size()),
	}
	if q := req.URL.RawQuery; q != "" {
		fields = append(fields, zap.String("query", q))
	}
	if userID := c.GetString(GinUserIDKey); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}

	log := reqLogger.Info
	switch {
	case status >= http.StatusInternalServerError:
		log = reqLogger.Error
	case status >= http.StatusBadRequest:
		log = reqLogger.Warn
	}
	log("HTTP Request", fields...)
}

// Recovery turns a handler panic into a 500 response in the API error envelope
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := c.GetString(GinRequestIDKey)
			logger.Error("Panic recovered",
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "ERR_INTERNAL",
					"message":    "Internal server error",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}
