package catalog

import (
	"strings"
	"time"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. Stock is the ceiling on how many
// units a single cart may hold.
type Product struct {
	ID          cart.ProductID
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct creates a product with zero stock
func NewProduct(id, name string, price decimal.Decimal) (*Product, error) {
	if err := validateProductID(id); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	now := time.Now()
	return &Product{
		ID:        cart.ProductID(strings.ToLower(id)),
		Name:      name,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetStock replaces the available stock
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.UpdatedAt = time.Now()
	return nil
}

// SetImage sets the product image URL
func (p *Product) SetImage(url string) {
	p.Image = url
	p.UpdatedAt = time.Now()
}

// Available reports whether quantity units fit under the stock ceiling
func (p *Product) Available(quantity int) bool {
	return quantity <= p.Stock
}

// PriceMoney returns the price in the store currency
func (p *Product) PriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Price)
}

// ToCartProduct converts to the input accepted by the storefront cart
func (p *Product) ToCartProduct() cart.Product {
	stock := p.Stock
	out := cart.Product{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Stock:     &stock,
	}
	if p.Image != "" {
		img := p.Image
		out.Image = &img
	}
	return out
}

func validateProductID(id string) error {
	if id == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if len(id) > 64 {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot exceed 64 characters")
	}
	for _, r := range id {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_PRODUCT", "Product ID can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
