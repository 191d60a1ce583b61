package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestNewGormLogger_Defaults(t *testing.T) {
	gl := NewGormLogger(nil, gormlogger.Warn)
	assert.Equal(t, DefaultSlowThreshold, gl.slowThreshold)
	assert.Equal(t, DefaultMaxSQLLength, gl.maxSQLLength)
	assert.True(t, gl.ignoreNotFound)

	gl = NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
		WithMaxSQLLength(10),
	)
	assert.Equal(t, time.Second, gl.slowThreshold)
	assert.False(t, gl.ignoreNotFound)
	assert.Equal(t, 10, gl.maxSQLLength)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	quiet, ok := gl.LogMode(gormlogger.Silent).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, quiet.level)
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Messages(t *testing.T) {
	tests := []struct {
		name  string
		level gormlogger.LogLevel
		log   func(*GormLogger)
		want  zapcore.Level
		empty bool
	}{
		{
			name:  "info",
			level: gormlogger.Info,
			log:   func(l *GormLogger) { l.Info(context.Background(), "seeded %d products", 5) },
			want:  zapcore.InfoLevel,
		},
		{
			name:  "info suppressed at warn",
			level: gormlogger.Warn,
			log:   func(l *GormLogger) { l.Info(context.Background(), "seeded") },
			empty: true,
		},
		{
			name:  "warn",
			level: gormlogger.Warn,
			log:   func(l *GormLogger) { l.Warn(context.Background(), "pool %s", "busy") },
			want:  zapcore.WarnLevel,
		},
		{
			name:  "error",
			level: gormlogger.Error,
			log:   func(l *GormLogger) { l.Error(context.Background(), "broken") },
			want:  zapcore.ErrorLevel,
		},
		{
			name:  "silent",
			level: gormlogger.Silent,
			log:   func(l *GormLogger) { l.Error(context.Background(), "broken") },
			empty: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGorm(tt.level)
			tt.log(gl)
			if tt.empty {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			assert.Equal(t, tt.want, recorded.All()[0].Level)
		})
	}
	t.Run("formats arguments", func(t *testing.T) {
		gl, recorded := newObservedGorm(gormlogger.Info)
		gl.Info(context.Background(), "seeded %d products", 5)
		assert.Equal(t, "seeded 5 products", recorded.All()[0].Message)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	slowBegin := time.Now().Add(-time.Second)

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Time
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{name: "query at info", level: gormlogger.Info, begin: time.Now(), wantMsg: "query", wantLvl: zapcore.DebugLevel},
		{name: "query hidden at warn", level: gormlogger.Warn, begin: time.Now()},
		{name: "failure", level: gormlogger.Error, begin: time.Now(), err: errors.New("boom"), wantMsg: "query failed", wantLvl: zapcore.ErrorLevel},
		{name: "not found ignored", level: gormlogger.Info, begin: time.Now(), err: gormlogger.ErrRecordNotFound},
		{
			name: "not found reported", level: gormlogger.Error, begin: time.Now(), err: gormlogger.ErrRecordNotFound,
			opts: []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, wantMsg: "query failed", wantLvl: zapcore.ErrorLevel,
		},
		{name: "slow", level: gormlogger.Warn, begin: slowBegin, wantMsg: "slow query", wantLvl: zapcore.WarnLevel},
		{name: "slow logging disabled", level: gormlogger.Warn, begin: slowBegin, opts: []GormLoggerOption{WithSlowThreshold(0)}},
		{name: "silent", level: gormlogger.Silent, begin: slowBegin, err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGorm(tt.level, tt.opts...)
			gl.Trace(context.Background(), tt.begin, statement(`SELECT * FROM "cart_lines" WHERE user_id = $1`, 2), tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLvl, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, "SELECT", fields["op"])
			assert.Equal(t, "cart_lines", fields["table"])
			assert.Equal(t, int64(2), fields["rows"])
		})
	}
}

func TestGormLogger_TraceCorrelation(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = context.WithValue(ctx, RequestIDKey, "req-42")
	ctx = context.WithValue(ctx, UserIDKey, "pilot-1")

	gl.Trace(ctx, time.Now(), statement("SELECT * FROM products", 1), nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "pilot-1", fields["user_id"])
}

func TestGormLogger_TruncatesSQL(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info, WithMaxSQLLength(20))
	long := "SELECT * FROM products WHERE id IN (" + strings.Repeat("'x',", 50) + "'y')"

	gl.Trace(context.Background(), time.Now(), statement(long, 0), nil)

	sql := recorded.All()[0].ContextMap()["sql"].(string)
	assert.Equal(t, long[:20]+"...", sql)
}

func TestDescribeStatement(t *testing.T) {
	tests := []struct {
		sql   string
		verb  string
		table string
	}{
		{`SELECT * FROM "products" WHERE "products"."id" = $1`, "SELECT", "products"},
		{`INSERT INTO "cart_lines" ("id","user_id") VALUES ($1,$2)`, "INSERT", "cart_lines"},
		{`UPDATE "cart_lines" SET "quantity"=$1`, "UPDATE", "cart_lines"},
		{`DELETE FROM cart_lines WHERE user_id = $1`, "DELETE", "cart_lines"},
		{`select count(*) from products`, "SELECT", "products"},
		{`TRUNCATE TABLE cart_lines`, "TRUNCATE", ""},
		{``, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.verb+" "+tt.table, func(t *testing.T) {
			verb, table := describeStatement(tt.sql)
			assert.Equal(t, tt.verb, verb)
			assert.Equal(t, tt.table, table)
		})
	}
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"WARN", gormlogger.Warn},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
