package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/dronestore/storefront/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProductService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		repo := new(MockProductRepository)
		p := newProduct(t, "dx-500", "499.99", 5)
		p.SetImage("https://cdn.example/dx.png")
		repo.On("FindByID", ctx, cart.ProductID("dx-500")).Return(p, nil)

		view, err := NewProductService(repo).Get(ctx, "dx-500")
		require.NoError(t, err)
		assert.Equal(t, "dx-500", view.ID)
		assert.Equal(t, 5, view.Stock)
		require.NotNil(t, view.Image)
		assert.Equal(t, "https://cdn.example/dx.png", *view.Image)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("FindByID", ctx, cart.ProductID("ghost")).Return(nil, shared.ErrNotFound)

		_, err := NewProductService(repo).Get(ctx, "ghost")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)

	normalized := shared.Filter{Page: 1, PageSize: shared.MaxPageSize, OrderDir: "asc"}
	repo.On("Count", ctx, normalized).Return(int64(2), nil)
	repo.On("FindAll", ctx, normalized).Return([]catalog.Product{
		*newProduct(t, "dx-500", "499.99", 5),
		*newProduct(t, "prop-kit", "12.00", 100),
	}, nil)

	page, err := NewProductService(repo).List(ctx, shared.Filter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "prop-kit", page.Items[1].ID)
	repo.AssertExpectations(t)
}

func TestProductService_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("demo catalog", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		n, err := NewProductService(repo).Seed(ctx, DemoCatalog)
		require.NoError(t, err)
		assert.Equal(t, len(DemoCatalog), n)
		repo.AssertNumberOfCalls(t, "Save", len(DemoCatalog))
	})

	t.Run("stops at the first invalid entry", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		n, err := NewProductService(repo).Seed(ctx, []SeedProduct{
			{ID: "ok", Name: "Ok", Price: "1.00", Stock: 1},
			{ID: "bad", Name: "Bad", Price: "one dollar", Stock: 1},
			{ID: "never", Name: "Never", Price: "1.00", Stock: 1},
		})
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Contains(t, err.Error(), "seed bad")
		repo.AssertNumberOfCalls(t, "Save", 1)
	})
}
