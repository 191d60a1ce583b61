package catalog

import (
	"context"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID returns shared.ErrNotFound when the product does not exist
	FindByID(ctx context.Context, id cart.ProductID) (*Product, error)

	// FindByIDs returns the products that exist, keyed by ID
	FindByIDs(ctx context.Context, ids []cart.ProductID) (map[cart.ProductID]*Product, error)

	// FindAll lists products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}
