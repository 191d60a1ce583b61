package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/shared"
)

// GetProduct looks up a catalog product, returning its current stock ceiling.
// Catalog reads do not require a credential.
func (g *CartGateway) GetProduct(ctx context.Context, id cart.ProductID) (cart.Product, error) {
	token, _ := g.credentials.Credential()
	body, err := g.do(ctx, token, http.MethodGet, "/products/"+url.PathEscape(string(id)), nil)
	if err != nil {
		if isHTTPStatus(err, http.StatusNotFound) {
			return cart.Product{}, shared.ErrNotFound.Withf("product %s", id)
		}
		return cart.Product{}, err
	}

	var wire wireProduct
	if err := decodeData(body, &wire); err != nil {
		return cart.Product{}, err
	}
	if wire.ID == "" {
		wire.ID = flexString(id)
	}
	return wire.toProduct(), nil
}

// ListProducts returns the catalog
func (g *CartGateway) ListProducts(ctx context.Context) ([]cart.Product, error) {
	token, _ := g.credentials.Credential()
	body, err := g.do(ctx, token, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}

	var wire []wireProduct
	if err := decodeData(body, &wire); err != nil {
		return nil, err
	}
	products := make([]cart.Product, 0, len(wire))
	for _, w := range wire {
		products = append(products, w.toProduct())
	}
	return products, nil
}

// decodeData unmarshals the data field of an envelope, or the whole body
func decodeData(body []byte, v any) error {
	var env apiResponse
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		body = env.Data
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("storefront: failed to parse response: %w", err)
	}
	return nil
}
