package persistence

import (
	"context"
	"errors"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartLineRepository implements cart.LineRepository using GORM
type GormCartLineRepository struct {
	db *gorm.DB
}

var _ cart.LineRepository = (*GormCartLineRepository)(nil)

// NewGormCartLineRepository creates a new GormCartLineRepository
func NewGormCartLineRepository(db *gorm.DB) *GormCartLineRepository {
	return &GormCartLineRepository{db: db}
}

// FindByUser returns the user's lines oldest first
func (r *GormCartLineRepository) FindByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	var rows []models.CartLineModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]cart.Line, len(rows))
	for i := range rows {
		lines[i] = rows[i].ToDomain()
	}
	return lines, nil
}

// FindByUserAndProduct finds a single line
func (r *GormCartLineRepository) FindByUserAndProduct(ctx context.Context, userID string, productID cart.ProductID) (*cart.Line, error) {
	var model models.CartLineModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, string(productID)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	line := model.ToDomain()
	return &line, nil
}

// Save upserts on (user_id, product_id)
func (r *GormCartLineRepository) Save(ctx context.Context, line *cart.Line) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(models.FromLine(line)).Error
}

// Delete removes a single line, returning shared.ErrNotFound when absent
func (r *GormCartLineRepository) Delete(ctx context.Context, userID string, productID cart.ProductID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, string(productID)).
		Delete(&models.CartLineModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByUser removes every line the user owns
func (r *GormCartLineRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartLineModel{}).Error
}
