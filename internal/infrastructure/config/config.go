package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Port     string `mapstructure:"port"`
	SeedDemo bool   `mapstructure:"seed_demo"` // seed demo catalog products on startup
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	Path            string `mapstructure:"path"`   // sqlite file path or ":memory:"
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // in minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"` // 0 keeps carts until cleared
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`

	// Per-user limit on the cart routes
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`

	// Serves the OpenAPI document and UI under /swagger
	SwaggerEnabled bool `mapstructure:"swagger_enabled"`
}

// GatewayConfig holds the storefront client's view of the cart API
type GatewayConfig struct {
	BaseURL          string        `mapstructure:"base_url"`          // e.g. http://localhost:8080/api/v1
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`   // per HTTP request
	ReconcileTimeout time.Duration `mapstructure:"reconcile_timeout"` // per queued reconciliation call
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
}

// StorageConfig selects the key-value backend behind local cart persistence
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`     // memory, redis, badger, s3
	BadgerPath string `mapstructure:"badger_path"` // empty means in-memory badger
	// S3-compatible object storage (AWS S3, MinIO, RustFS)
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`            // Whether to enable OpenTelemetry
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`     // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  `mapstructure:"service_name"`       // Service name for traces and metrics
	Insecure          bool    `mapstructure:"insecure"`           // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    `mapstructure:"db_trace_enabled"`   // Enable database query tracing (otelgorm)

	// MetricsInterval is how often metrics are pushed to the collector
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
}

// DevelopmentJWTSecret signs tokens outside production when no secret is configured
const DevelopmentJWTSecret = "storefront-development-secret-do-not-use"

// defaults registers every key so viper resolves STOREFRONT_* variables
// for it during Unmarshal, including keys whose default is empty.
var defaults = map[string]any{
	"app.name":      "storefront",
	"app.env":       "development",
	"app.port":      "8080",
	"app.seed_demo": false,

	"database.driver":             "postgres",
	"database.path":               "",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "storefront",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":       "localhost",
	"redis.port":       6379,
	"redis.password":   "",
	"redis.db":         0,
	"redis.key_prefix": "storefront:kv:",
	"redis.ttl":        time.Duration(0),

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 24 * time.Hour,
	"jwt.issuer":                  "storefront",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        60 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(1 << 20),
	"http.cors_allow_origins":  []string{},
	"http.trusted_proxies":     []string{},
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 120,
	"http.rate_limit_window":   time.Minute,
	"http.swagger_enabled":     true,

	"gateway.base_url":           "http://localhost:8080/api/v1",
	"gateway.request_timeout":    5 * time.Second,
	"gateway.reconcile_timeout":  10 * time.Second,
	"gateway.max_response_bytes": int64(2 << 20),

	"storage.backend":        "memory",
	"storage.badger_path":    "",
	"storage.endpoint":       "",
	"storage.region":         "us-east-1",
	"storage.bucket":         "",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_ssl":        false,
	"storage.use_path_style": false,
	"storage.key_prefix":     "carts/",

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.sampling_ratio":     1.0,
	"telemetry.service_name":       "storefront",
	"telemetry.insecure":           false,
	"telemetry.db_trace_enabled":   false,
	"telemetry.metrics_interval":   30 * time.Second,
}

// Load reads config.toml from the working directory or /etc/storefront and
// overlays STOREFRONT_<SECTION>_<KEY> environment variables. A missing file
// is not an error.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/storefront")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// derive fills values that depend on other keys
func (c *Config) derive() {
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "storefront.db"
	}
	if c.JWT.Secret == "" && c.App.Env != "production" {
		c.JWT.Secret = DevelopmentJWTSecret
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Backend {
	case "memory", "redis", "badger":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, redis, badger, s3, got %q", c.Storage.Backend)
	}

	if _, err := url.ParseRequestURI(c.Gateway.BaseURL); err != nil {
		return fmt.Errorf("gateway.base_url is invalid: %w", err)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if c.JWT.Secret == DevelopmentJWTSecret {
			return fmt.Errorf("jwt.secret cannot be the development secret in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
