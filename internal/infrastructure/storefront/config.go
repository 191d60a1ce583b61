package storefront

import (
	"errors"
	"net/url"
	"time"

	"github.com/dronestore/storefront/internal/infrastructure/config"
)

const (
	// DefaultRequestTimeout bounds a single HTTP call to the cart API
	DefaultRequestTimeout = 5 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read (2MB)
	DefaultMaxResponseBytes int64 = 2 * 1024 * 1024
)

// Errors for gateway configuration
var (
	ErrGatewayMissingBaseURL = errors.New("storefront: base URL is required")
	ErrGatewayInvalidBaseURL = errors.New("storefront: base URL must be an absolute http(s) URL")
	ErrGatewayInvalidTimeout = errors.New("storefront: request timeout must be positive")
)

// GatewayConfig holds configuration for the remote cart API client
type GatewayConfig struct {
	// BaseURL is the API root, e.g. https://shop.example.com/api/v1
	BaseURL string
	// RequestTimeout is the HTTP client timeout
	RequestTimeout time.Duration
	// MaxResponseBytes limits the size of a response body
	MaxResponseBytes int64
}

// NewGatewayConfig creates a gateway configuration with defaults
func NewGatewayConfig(baseURL string) *GatewayConfig {
	return &GatewayConfig{
		BaseURL:          baseURL,
		RequestTimeout:   DefaultRequestTimeout,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// GatewayConfigFrom builds a gateway configuration from application config
func GatewayConfigFrom(cfg config.GatewayConfig) *GatewayConfig {
	gc := NewGatewayConfig(cfg.BaseURL)
	if cfg.RequestTimeout > 0 {
		gc.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.MaxResponseBytes > 0 {
		gc.MaxResponseBytes = cfg.MaxResponseBytes
	}
	return gc
}

// Validate validates the configuration
func (c *GatewayConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrGatewayMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrGatewayInvalidBaseURL
	}
	if c.RequestTimeout <= 0 {
		return ErrGatewayInvalidTimeout
	}
	return nil
}
