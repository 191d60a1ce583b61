package cart

import (
	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product. Server payloads may carry it as a
// JSON number or string; it is always held as a string.
type ProductID string

// Item is a single cart line as seen by the storefront.
// Quantity is at least 1 and never exceeds Stock when Stock is known.
type Item struct {
	ID        ProductID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Image     *string         `json:"image,omitempty"`
	Stock     *int            `json:"stock,omitempty"`
}

// Subtotal returns UnitPrice x Quantity
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasStock reports whether the stock ceiling is known
func (i Item) HasStock() bool {
	return i.Stock != nil
}

// Clone returns a deep copy so callers cannot mutate store state through
// the optional pointer fields.
func (i Item) Clone() Item {
	out := i
	if i.Image != nil {
		img := *i.Image
		out.Image = &img
	}
	if i.Stock != nil {
		s := *i.Stock
		out.Stock = &s
	}
	return out
}

// CloneItems deep-copies a slice of items
func CloneItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	for idx, it := range items {
		out[idx] = it.Clone()
	}
	return out
}

// Product is the catalog view handed to AddToCart.
type Product struct {
	ID        ProductID
	Name      string
	UnitPrice decimal.Decimal
	Image     *string
	Stock     *int
}

// ToItem converts the product into a cart item with the given quantity
func (p Product) ToItem(quantity int) Item {
	return Item{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  quantity,
		Image:     p.Image,
		Stock:     p.Stock,
	}.Clone()
}

// IntPtr is a small helper for optional stock values
func IntPtr(v int) *int {
	return &v
}

// StringPtr is a small helper for optional image values
func StringPtr(v string) *string {
	return &v
}
