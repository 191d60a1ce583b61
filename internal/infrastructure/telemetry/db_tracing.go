package telemetry

import (
	"errors"
	"time"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold marks queries slower than this on their span
const DefaultSlowQueryThreshold = 200 * time.Millisecond

const queryStartKey = "telemetry:query_start"

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	DBSystem        string
	SlowQueryThresh time.Duration
	// WithVariables includes bound query parameters in spans
	WithVariables bool
}

// DBTracingConfigFrom derives tracing settings from the telemetry and database sections.
func DBTracingConfigFrom(tel config.TelemetryConfig, db config.DatabaseConfig) DBTracingConfig {
	system := "postgresql"
	if db.Driver == "sqlite" {
		system = "sqlite"
	}
	return DBTracingConfig{
		Enabled:         tel.Enabled && tel.DBTraceEnabled,
		DBSystem:        system,
		SlowQueryThresh: DefaultSlowQueryThreshold,
	}
}

// DBTracingPlugin registers otelgorm plus slow query tagging.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultSlowQueryThreshold
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the plugin on db. It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// finish runs ahead of otelgorm's after hook so the span is still recording
	cb := db.Callback()
	hooks := []struct {
		name          string
		before, after registrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw")},
	}
	for _, h := range hooks {
		if err := h.before.Register("telemetry:start_"+h.name, markStart); err != nil {
			return err
		}
		if err := h.after.Register("telemetry:finish_"+h.name, p.finish); err != nil {
			return err
		}
	}
	return nil
}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func markStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (p *DBTracingPlugin) finish(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
