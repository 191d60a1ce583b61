package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dronestore/storefront/internal/infrastructure/config"
)

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string // Go time layout
	Service    string // added as the service field when set
}

// DefaultConfig logs info and above to stdout in console format
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: defaultTimeFormat,
	}
}

// FromConfig converts the application log section, filling blanks with defaults
func FromConfig(cfg config.LogConfig) *Config {
	c := DefaultConfig()
	for dst, src := range map[*string]string{&c.Level: cfg.Level, &c.Format: cfg.Format, &c.Output: cfg.Output} {
		if src != "" {
			*dst = src
		}
	}
	return c
}

// New builds a zap logger writing to cfg.Output
func New(cfg *Config) (*zap.Logger, error) {
	writer, toFile, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg, !toFile), writer, parseLevel(cfg.Level))
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

// parseLevel falls back to info for names zap does not know
func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// newEncoder colors console levels only when writing to a terminal stream
func newEncoder(cfg *Config, color bool) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format != "console" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// openOutput reports whether the writer is a file
func openOutput(output string) (zapcore.WriteSyncer, bool, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), false, nil
	case "stderr":
		return zapcore.Lock(os.Stderr), false, nil
	}
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file %q: %w", output, err)
	}
	return zapcore.AddSync(file), true, nil
}
