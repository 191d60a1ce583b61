package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/persistence"
	"github.com/dronestore/storefront/internal/interfaces/http/dto"
	"github.com/dronestore/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserHeader = "X-Test-User"

type cartBody struct {
	Items []struct {
		ID        string `json:"id"`
		ProductID string `json:"productId"`
		Name      string `json:"name"`
		UnitPrice string `json:"unitPrice"`
		Quantity  int    `json:"quantity"`
		Stock     int    `json:"stock"`
	} `json:"items"`
	Total     string `json:"total"`
	ItemCount int    `json:"itemCount"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

// newTestAPI wires the handlers over a seeded in-memory database. The user is
// taken from a test header in place of the JWT middleware.
func newTestAPI(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	products := persistence.NewGormProductRepository(db.DB)
	lines := persistence.NewGormCartLineRepository(db.DB)
	productService := cartapp.NewProductService(products)
	_, err = productService.Seed(context.Background(), cartapp.DemoCatalog)
	require.NoError(t, err)

	carts := NewCartHandler(cartapp.NewService(lines, products, nil))
	catalog := NewProductHandler(productService)

	r := gin.New()
	r.GET("/products", catalog.List)
	r.GET("/products/:id", catalog.Get)

	group := r.Group("/cart", func(c *gin.Context) {
		if id := c.GetHeader(testUserHeader); id != "" {
			c.Set(middleware.JWTUserIDKey, id)
		}
		c.Next()
	})
	group.GET("", carts.Get)
	group.DELETE("", carts.Clear)
	group.POST("/items", carts.AddItem)
	group.PATCH("/items/:id", carts.SetQuantity)
	group.DELETE("/items/:id", carts.RemoveItem)
	return r
}

func call(t *testing.T, r http.Handler, method, path, user string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeCart(t *testing.T, env envelope) cartBody {
	t.Helper()
	require.True(t, env.Success)
	var c cartBody
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

func TestCartHandler_RequiresUser(t *testing.T) {
	r := newTestAPI(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/cart"},
		{http.MethodDelete, "/cart"},
		{http.MethodPost, "/cart/items"},
		{http.MethodPatch, "/cart/items/dx-500"},
		{http.MethodDelete, "/cart/items/dx-500"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w, env := call(t, r, rt.method, rt.path, "", map[string]any{"productId": "dx-500", "quantity": 1})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, dto.ErrCodeUnauthorized, env.Error.Code)
		})
	}
}

func TestCartHandler_EmptyCart(t *testing.T) {
	r := newTestAPI(t)

	w, env := call(t, r, http.MethodGet, "/cart", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	c := decodeCart(t, env)
	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Items)
	assert.Equal(t, "0", c.Total)
	assert.Zero(t, c.ItemCount)
}

func TestCartHandler_AddItem(t *testing.T) {
	r := newTestAPI(t)

	t.Run("adds and accumulates", func(t *testing.T) {
		_, env := call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "dx-500", "quantity": 2})
		c := decodeCart(t, env)
		require.Len(t, c.Items, 1)
		assert.Equal(t, "dx-500", c.Items[0].ID)
		assert.Equal(t, "dx-500", c.Items[0].ProductID)
		assert.Equal(t, 2, c.Items[0].Quantity)
		assert.Equal(t, 5, c.Items[0].Stock)
		assert.Equal(t, "999.98", c.Total)

		_, env = call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "dx-500"})
		c = decodeCart(t, env)
		assert.Equal(t, 3, c.Items[0].Quantity, "missing quantity adds one unit")
		assert.Equal(t, 3, c.ItemCount)
	})

	t.Run("stock ceiling answers 409", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "dx-500", "quantity": 3})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, env.Error.Code)

		_, env = call(t, r, http.MethodGet, "/cart", "u1", nil)
		assert.Equal(t, 3, decodeCart(t, env).ItemCount, "rejected add leaves the line untouched")
	})

	t.Run("out of stock product", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "gimbal-3ax", "quantity": 1})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, env.Error.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		w, env := call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "ghost", "quantity": 1})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
		assert.Contains(t, env.Error.Message, "ghost")
	})

	t.Run("invalid bodies", func(t *testing.T) {
		tests := []struct {
			name string
			body any
		}{
			{name: "missing product", body: map[string]any{"quantity": 1}},
			{name: "quantity above limit", body: map[string]any{"productId": "dx-500", "quantity": 1000}},
			{name: "quantity not a number", body: map[string]any{"productId": "dx-500", "quantity": "two"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w, env := call(t, r, http.MethodPost, "/cart/items", "u1", tt.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.False(t, env.Success)
			})
		}
	})
}

func TestCartHandler_SetQuantity(t *testing.T) {
	r := newTestAPI(t)
	call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "lipo-4s", "quantity": 1})

	t.Run("sets absolute quantity", func(t *testing.T) {
		_, env := call(t, r, http.MethodPatch, "/cart/items/lipo-4s", "u1", map[string]any{"quantity": 4})
		c := decodeCart(t, env)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 4, c.Items[0].Quantity)
		assert.Equal(t, "142", c.Total)
	})

	t.Run("creates a missing line", func(t *testing.T) {
		_, env := call(t, r, http.MethodPatch, "/cart/items/prop-kit", "u1", map[string]any{"quantity": 2})
		assert.Len(t, decodeCart(t, env).Items, 2)
	})

	t.Run("above stock answers 409", func(t *testing.T) {
		w, env := call(t, r, http.MethodPatch, "/cart/items/lipo-4s", "u1", map[string]any{"quantity": 41})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeInsufficientStock, env.Error.Code)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		_, env := call(t, r, http.MethodPatch, "/cart/items/lipo-4s", "u1", map[string]any{"quantity": 0})
		c := decodeCart(t, env)
		require.Len(t, c.Items, 1)
		assert.Equal(t, "prop-kit", c.Items[0].ID)
	})

	t.Run("quantity is required", func(t *testing.T) {
		w, _ := call(t, r, http.MethodPatch, "/cart/items/prop-kit", "u1", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCartHandler_RemoveAndClear(t *testing.T) {
	r := newTestAPI(t)
	call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "lipo-4s", "quantity": 1})
	call(t, r, http.MethodPost, "/cart/items", "u1", map[string]any{"productId": "prop-kit", "quantity": 1})
	call(t, r, http.MethodPost, "/cart/items", "u2", map[string]any{"productId": "prop-kit", "quantity": 5})

	_, env := call(t, r, http.MethodDelete, "/cart/items/lipo-4s", "u1", nil)
	assert.Len(t, decodeCart(t, env).Items, 1)

	w, env := call(t, r, http.MethodDelete, "/cart/items/lipo-4s", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code, "removing an absent line succeeds")
	assert.Len(t, decodeCart(t, env).Items, 1)

	_, env = call(t, r, http.MethodDelete, "/cart", "u1", nil)
	c := decodeCart(t, env)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.ItemCount)

	_, env = call(t, r, http.MethodGet, "/cart", "u2", nil)
	assert.Equal(t, 5, decodeCart(t, env).ItemCount, "other carts are untouched")
}
