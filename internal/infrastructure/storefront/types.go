package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dronestore/storefront/internal/domain/cart"
)

// apiResponse is the server's response envelope
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// cartPayload is the cart body; servers send either {"items": [...]} or a bare array
type cartPayload struct {
	Items []wireItem `json:"items"`
}

type wireItem struct {
	ID        flexString      `json:"id"`
	ProductID flexString      `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Price     decimal.Decimal `json:"price"`
	Quantity  flexInt         `json:"quantity"`
	Image     *string         `json:"image"`
	Stock     *flexInt        `json:"stock"`
}

type wireProduct struct {
	ID    flexString      `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image *string         `json:"image"`
	Stock *flexInt        `json:"stock"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// flexInt accepts a JSON number or a numeric string. Fractions are
// truncated; values outside the int32 range are rejected.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > math.MaxInt32 || n < math.MinInt32 {
			return fmt.Errorf("storefront: integer %q out of range", s)
		}
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("storefront: invalid integer %q", s)
	}
	v = math.Trunc(v)
	if v > math.MaxInt32 || v < math.MinInt32 {
		return fmt.Errorf("storefront: integer %q out of range", s)
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("storefront: invalid identifier %s", string(data))
	}
	*f = flexString(n.String())
	return nil
}

func (w wireItem) toItem() cart.Item {
	id := w.ID
	if w.ProductID != "" {
		id = w.ProductID
	}
	price := w.UnitPrice
	if price.IsZero() && !w.Price.IsZero() {
		price = w.Price
	}
	qty := int(w.Quantity)
	if qty < 1 {
		qty = 1
	}
	item := cart.Item{
		ID:        cart.ProductID(id),
		Name:      w.Name,
		UnitPrice: price,
		Quantity:  qty,
		Image:     w.Image,
	}
	if w.Stock != nil {
		item.Stock = cart.IntPtr(int(*w.Stock))
	}
	return item
}

func (w wireProduct) toProduct() cart.Product {
	p := cart.Product{
		ID:        cart.ProductID(w.ID),
		Name:      w.Name,
		UnitPrice: w.Price,
		Image:     w.Image,
	}
	if w.Stock != nil {
		p.Stock = cart.IntPtr(int(*w.Stock))
	}
	return p
}

// decodeItems parses a cart body: an envelope whose data is a cart payload or
// an array, or one of those without an envelope.
func decodeItems(body []byte) ([]cart.Item, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []cart.Item{}, nil
	}

	if body[0] == '{' {
		var env apiResponse
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
			body = bytes.TrimSpace(env.Data)
		}
	}

	var wire []wireItem
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("storefront: failed to parse cart items: %w", err)
		}
	} else {
		var payload cartPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("storefront: failed to parse cart: %w", err)
		}
		wire = payload.Items
	}

	items := make([]cart.Item, 0, len(wire))
	for _, w := range wire {
		item := w.toItem()
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
