package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

// USD is the only currency the storefront settles in
const USD Currency = "USD"

// DefaultCurrency applies when a price carries no currency
const DefaultCurrency = USD

var symbols = map[Currency]string{
	USD: "$",
}

// Money pairs a decimal amount with its currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney returns amount in currency, or in DefaultCurrency when currency is empty
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: amount, currency: currency}
}

// NewMoneyUSD returns amount in dollars
func NewMoneyUSD(amount decimal.Decimal) Money {
	return NewMoney(amount, USD)
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() Currency { return m.currency }

func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add sums two amounts of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Times returns the price of qty units
func (m Money) Times(qty int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty))), currency: m.currency}
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders "129.00 USD"
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

// Display renders "$129.00", falling back to String for currencies without a symbol
func (m Money) Display() string {
	symbol, ok := symbols[m.currency]
	if !ok {
		return m.String()
	}
	if m.amount.IsNegative() {
		return "-" + symbol + m.amount.Abs().StringFixed(2)
	}
	return symbol + m.amount.StringFixed(2)
}
