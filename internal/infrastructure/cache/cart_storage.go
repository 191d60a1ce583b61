package cache

import (
	"context"
	"encoding/json"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
	"go.uber.org/zap"
)

// CartStorage persists a cart as a JSON array under its identity key.
// Storage failures are logged and swallowed.
type CartStorage struct {
	store  KeyValueStore
	logger *zap.Logger
}

var _ cartsync.Persistence = (*CartStorage)(nil)

// NewCartStorage wraps a key-value store
func NewCartStorage(store KeyValueStore, logger *zap.Logger) *CartStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStorage{store: store, logger: logger}
}

// Load returns the stored cart, or an empty one if nothing usable is stored
func (c *CartStorage) Load(ctx context.Context, key cart.Key) []cart.Item {
	raw, found, err := c.store.Get(ctx, key.String())
	if err != nil {
		c.logger.Warn("failed to read stored cart", zap.String("key", key.String()), zap.Error(err))
		return []cart.Item{}
	}
	if !found || raw == "" {
		return []cart.Item{}
	}

	var items []cart.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Debug("discarding unparseable stored cart", zap.String("key", key.String()), zap.Error(err))
		return []cart.Item{}
	}
	return cart.Normalize(items)
}

// Save writes the cart
func (c *CartStorage) Save(ctx context.Context, key cart.Key, items []cart.Item) {
	if items == nil {
		items = []cart.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.logger.Warn("failed to encode cart", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key.String(), string(data)); err != nil {
		c.logger.Warn("failed to save cart", zap.String("key", key.String()), zap.Error(err))
	}
}

// Clear removes the stored cart
func (c *CartStorage) Clear(ctx context.Context, key cart.Key) {
	if err := c.store.Delete(ctx, key.String()); err != nil {
		c.logger.Warn("failed to clear stored cart", zap.String("key", key.String()), zap.Error(err))
	}
}
