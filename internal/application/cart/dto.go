package cart

import (
	"github.com/dronestore/storefront/internal/domain/cart"
	"github.com/dronestore/storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds a single request so quantity arithmetic stays small
const MaxLineQuantity = 999

// AddItemInput adds Quantity units of a product to the user's cart
type AddItemInput struct {
	UserID    string `validate:"required"`
	ProductID string `validate:"required,max=64"`
	Quantity  int    `validate:"gte=1,lte=999"`
}

// SetQuantityInput sets the absolute quantity of a line. Zero removes it.
type SetQuantityInput struct {
	UserID    string `validate:"required"`
	ProductID string `validate:"required,max=64"`
	Quantity  int    `validate:"gte=0,lte=999"`
}

// ItemView is a cart line joined with its catalog product
type ItemView struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Image     *string         `json:"image,omitempty"`
	Stock     int             `json:"stock"`
}

// CartView is the server-authoritative cart returned by every operation
type CartView struct {
	Items     []ItemView      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// ProductView is a catalog product as exposed by the API
type ProductView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       *string         `json:"image,omitempty"`
	Stock       int             `json:"stock"`
}

// ToProductView converts a domain product
func ToProductView(p *catalog.Product) ProductView {
	v := ProductView{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
	if p.Image != "" {
		img := p.Image
		v.Image = &img
	}
	return v
}

func newCartView(lines []cart.Line, products map[cart.ProductID]*catalog.Product) *CartView {
	view := &CartView{Items: make([]ItemView, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}
		pv := ToProductView(p)
		item := ItemView{
			ID:        pv.ID,
			ProductID: pv.ID,
			Name:      pv.Name,
			UnitPrice: pv.Price,
			Quantity:  line.Quantity,
			Image:     pv.Image,
			Stock:     pv.Stock,
		}
		view.Items = append(view.Items, item)
		view.Total = view.Total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		view.ItemCount += item.Quantity
	}
	return view
}
