package cart

import (
	"context"
	"time"

	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/google/uuid"
)

// Line is one row of a server-authoritative cart owned by a user.
type Line struct {
	ID        uuid.UUID
	UserID    string
	ProductID ProductID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLine creates a cart line for the user and product
func NewLine(userID string, productID ProductID, quantity int) (*Line, error) {
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if productID == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	now := time.Now()
	return &Line{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetQuantity changes the line quantity
func (l *Line) SetQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	return nil
}

// LineRepository defines persistence for server-side cart lines
type LineRepository interface {
	// FindByUser returns the user's lines in insertion order
	FindByUser(ctx context.Context, userID string) ([]Line, error)

	// FindByUserAndProduct returns shared.ErrNotFound when the line does not exist
	FindByUserAndProduct(ctx context.Context, userID string, productID ProductID) (*Line, error)

	// Save creates or updates a line
	Save(ctx context.Context, line *Line) error

	// Delete removes a single line
	Delete(ctx context.Context, userID string, productID ProductID) error

	// DeleteByUser removes every line the user owns
	DeleteByUser(ctx context.Context, userID string) error
}
