package cart

import (
	"github.com/dronestore/storefront/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Total returns the sum of unitPrice x quantity over items
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// TotalMoney returns Total in the storefront currency
func TotalMoney(items []Item) valueobject.Money {
	return valueobject.NewMoneyUSD(Total(items))
}

// Count returns the sum of quantities over items
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// IndexOf returns the position of id in items, or -1
func IndexOf(items []Item, id ProductID) int {
	for idx := range items {
		if items[idx].ID == id {
			return idx
		}
	}
	return -1
}
