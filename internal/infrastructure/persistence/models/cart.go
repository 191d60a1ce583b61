package models

import (
	"time"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/google/uuid"
)

// CartLineModel is the persistence model for cart.Line.
// (user_id, product_id) is unique so a product appears once per cart.
type CartLineModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_line_user_product,priority:1"`
	ProductID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_line_user_product,priority:2"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartLineModel) TableName() string {
	return "cart_lines"
}

// ToDomain converts the model to a domain Line
func (m *CartLineModel) ToDomain() cart.Line {
	return cart.Line{
		ID:        m.ID,
		UserID:    m.UserID,
		ProductID: cart.ProductID(m.ProductID),
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromLine builds a model from a domain Line
func FromLine(l *cart.Line) *CartLineModel {
	return &CartLineModel{
		ID:        l.ID,
		UserID:    l.UserID,
		ProductID: string(l.ProductID),
		Quantity:  l.Quantity,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
