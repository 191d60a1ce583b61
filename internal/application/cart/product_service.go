package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// ProductService exposes the read side of the catalog plus demo seeding
type ProductService struct {
	products catalog.ProductRepository
}

// NewProductService creates a new ProductService
func NewProductService(products catalog.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// Get returns one product
func (s *ProductService) Get(ctx context.Context, id string) (*ProductView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "get", telemetry.SpanAttrProductID, id)
	defer span.End()

	p, err := s.products.FindByID(ctx, cart.ProductID(id))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}
	v := ToProductView(p)
	return &v, nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[ProductView], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "list")
	defer span.End()

	filter = filter.Normalize()
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[ProductView]{}, err
	}
	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[ProductView]{}, err
	}

	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, ToProductView(&products[i]))
	}
	return shared.NewPaginated(views, total, filter), nil
}

// SeedProduct describes one catalog entry created by Seed
type SeedProduct struct {
	ID    string
	Name  string
	Price string
	Stock int
	Image string
}

// DemoCatalog is the catalog seeded for local development
var DemoCatalog = []SeedProduct{
	{ID: "dx-500", Name: "DX-500 Quadcopter", Price: "499.99", Stock: 5},
	{ID: "fpv-goggles", Name: "FPV Goggles", Price: "189.00", Stock: 12},
	{ID: "lipo-4s", Name: "4S LiPo Battery", Price: "35.50", Stock: 40},
	{ID: "prop-kit", Name: "Propeller Kit", Price: "12.00", Stock: 100},
	{ID: "gimbal-3ax", Name: "3-Axis Gimbal", Price: "129.00", Stock: 0},
}

// Seed upserts the given products, returning how many were written
func (s *ProductService) Seed(ctx context.Context, seeds []SeedProduct) (int, error) {
	for i, seed := range seeds {
		price, err := decimal.NewFromString(seed.Price)
		if err != nil {
			return i, fmt.Errorf("seed %s: invalid price %q: %w", seed.ID, seed.Price, err)
		}
		p, err := catalog.NewProduct(seed.ID, seed.Name, price)
		if err != nil {
			return i, fmt.Errorf("seed %s: %w", seed.ID, err)
		}
		if err := p.SetStock(seed.Stock); err != nil {
			return i, fmt.Errorf("seed %s: %w", seed.ID, err)
		}
		if seed.Image != "" {
			p.SetImage(seed.Image)
		}
		if err := s.products.Save(ctx, p); err != nil {
			return i, fmt.Errorf("seed %s: %w", seed.ID, err)
		}
	}
	return len(seeds), nil
}
