package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// DefaultSlowThreshold is the duration above which a statement is logged as slow
	DefaultSlowThreshold = 200 * time.Millisecond
	// DefaultMaxSQLLength truncates logged statements; 0 disables truncation
	DefaultMaxSQLLength = 2048
)

// GormLogger routes GORM output through zap. Entries carry the trace,
// request and user found in the statement context, plus the statement's
// verb and table so cart and catalog queries can be told apart.
type GormLogger struct {
	logger         *zap.Logger
	level          gormlogger.LogLevel
	slowThreshold  time.Duration
	ignoreNotFound bool
	maxSQLLength   int
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold; 0 disables slow logging
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError controls whether lookups that find nothing are logged as errors
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreNotFound = ignore
	}
}

// WithMaxSQLLength caps the logged statement length
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

// NewGormLogger creates a GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gl := &GormLogger{
		logger:         zapLogger.Named("gorm"),
		level:          level,
		slowThreshold:  DefaultSlowThreshold,
		ignoreNotFound: true,
		maxSQLLength:   DefaultMaxSQLLength,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithLogger(ctx, l.logger).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithLogger(ctx, l.logger).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithLogger(ctx, l.logger).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement. Failures log at error, statements over
// the slow threshold at warn, everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	failed := err != nil && !(l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound))

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
	case slow && l.level >= gormlogger.Warn:
	case err == nil && l.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	verb, table := describeStatement(sql)
	log := WithLogger(ctx, l.logger).With(
		zap.String("op", verb),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.truncate(sql)),
	)

	switch {
	case failed:
		log.Error("query failed", zap.Error(err))
	case slow:
		log.Warn("slow query", zap.Duration("threshold", l.slowThreshold))
	default:
		log.Debug("query")
	}
}

func (l *GormLogger) truncate(sql string) string {
	if l.maxSQLLength <= 0 || len(sql) <= l.maxSQLLength {
		return sql
	}
	return sql[:l.maxSQLLength] + "..."
}

// describeStatement returns the SQL verb and the first table it touches
func describeStatement(sql string) (verb, table string) {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "", ""
	}
	verb = strings.ToUpper(fields[0])

	marker := ""
	switch verb {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(fields) > 1 {
			return verb, unquote(fields[1])
		}
		return verb, ""
	default:
		return verb, ""
	}
	for i := 1; i < len(fields)-1; i++ {
		if strings.EqualFold(fields[i], marker) {
			return verb, unquote(fields[i+1])
		}
	}
	return verb, ""
}

func unquote(name string) string {
	name = strings.TrimRight(name, "(;,")
	return strings.Trim(name, "\"`")
}

// MapGormLogLevel maps a zap level name to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
