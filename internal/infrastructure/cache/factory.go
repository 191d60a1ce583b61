package cache

import (
	"fmt"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory creates key-value stores based on configuration
type StoreFactory struct {
	storage               config.StorageConfig
	redis                 config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory store
// when the configured backend is unavailable. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(storage config.StorageConfig, redis config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		storage:               storage,
		redis:                 redis,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore opens the configured backend. If it cannot be opened and
// fallback is allowed, an in-memory store is returned instead.
func (f *StoreFactory) CreateStore() (KeyValueStore, error) {
	store, err := f.create()
	if err == nil {
		f.logger.Info("cart storage ready", zap.String("backend", f.storage.Backend))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("cart storage backend %q unavailable: %w", f.storage.Backend, err)
	}

	f.logger.Warn("cart storage backend unavailable, falling back to in-memory store. "+
		"Carts will not survive a restart.",
		zap.String("backend", f.storage.Backend),
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}

func (f *StoreFactory) create() (KeyValueStore, error) {
	switch f.storage.Backend {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "redis":
		return NewRedisStore(f.redis)
	case "badger":
		return OpenBadgerStore(f.storage.BadgerPath)
	case "s3":
		return NewS3Store(&f.storage, WithS3Logger(f.logger))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", f.storage.Backend)
	}
}
