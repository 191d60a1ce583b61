package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
)

// ErrorReporter logs cart failures the engine could not resolve
type ErrorReporter struct {
	logger *zap.Logger
}

var _ cartsync.ErrorReporter = (*ErrorReporter)(nil)

// NewErrorReporter creates a reporter writing to logger
func NewErrorReporter(logger *zap.Logger) *ErrorReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorReporter{logger: logger.Named("cart")}
}

// Report implements cartsync.ErrorReporter
func (r *ErrorReporter) Report(ctx context.Context, err error, rc cartsync.ReportContext) {
	fields := []zap.Field{
		zap.String("operation", string(rc.Operation)),
		zap.String("identity", rc.Identity.String()),
		zap.Uint64("version", rc.Version),
		zap.String("outcome", cart.OutcomeOf(err).String()),
		zap.Error(err),
	}
	if rc.ProductID != "" {
		fields = append(fields, zap.String("product_id", string(rc.ProductID)))
	}

	l := WithLogger(ctx, r.logger)
	if cart.OutcomeOf(err) == cart.OutcomeAuthRequired {
		l.Warn("cart operation requires authentication", fields...)
		return
	}
	l.Error("cart operation failed", fields...)
}

// NoticeLogger writes user-facing notices to a logger. Servers and tests use
// it where there is no screen to show them on.
type NoticeLogger struct {
	logger *zap.Logger
}

var _ cartsync.Notifier = (*NoticeLogger)(nil)

// NewNoticeLogger creates a notifier writing to logger
func NewNoticeLogger(logger *zap.Logger) *NoticeLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeLogger{logger: logger.Named("notice")}
}

// Notify implements cartsync.Notifier
func (n *NoticeLogger) Notify(ctx context.Context, notice cartsync.Notice) {
	l := WithLogger(ctx, n.logger)
	if notice.Level == cartsync.NoticeWarning {
		l.Warn(notice.Message)
		return
	}
	l.Info(notice.Message)
}
