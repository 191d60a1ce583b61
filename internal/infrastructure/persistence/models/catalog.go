package models

import (
	"time"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	ID          string          `gorm:"type:varchar(64);primaryKey"`
	Name        string          `gorm:"type:varchar(200);not null;index"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Image       string          `gorm:"type:varchar(500)"`
	Stock       int             `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:          cart.ProductID(m.ID),
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Image:       m.Image,
		Stock:       m.Stock,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromProduct builds a model from a domain Product
func FromProduct(p *catalog.Product) *ProductModel {
	return &ProductModel{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
