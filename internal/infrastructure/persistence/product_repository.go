package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/dronestore/storefront/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id cart.ProductID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the products that exist among ids
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []cart.ProductID) (map[cart.ProductID]*catalog.Product, error) {
	out := make(map[cart.ProductID]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		p := rows[i].ToDomain()
		out[p.ID] = p
	}
	return out, nil
}

// FindAll lists products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	filter = filter.Normalize()
	query := r.applySearch(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter)

	query = query.Order(productOrder(filter)).
		Offset(filter.Offset()).
		Limit(filter.PageSize)

	var rows []models.ProductModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Count counts products matching the filter's search
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applySearch(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter.Normalize())
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save upserts a product, keeping the original creation time
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "image", "stock", "updated_at"}),
	}).Create(models.FromProduct(product)).Error
}

// productOrderColumns maps accepted sort keys to columns; anything else sorts by name
var productOrderColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"newest":     "created_at",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func productOrder(filter shared.Filter) clause.OrderByColumn {
	column, ok := productOrderColumns[strings.ToLower(strings.TrimSpace(filter.OrderBy))]
	if !ok {
		column = "name"
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.OrderDir == "desc"}
}

func (r *GormProductRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search == "" {
		return query
	}
	pattern := "%" + strings.ToLower(filter.Search) + "%"
	return query.Where("LOWER(name) LIKE ? OR LOWER(id) LIKE ?", pattern, pattern)
}
