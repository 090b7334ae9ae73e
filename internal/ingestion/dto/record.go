package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the canonical shape every supported file format is mapped into.
type Record struct {
	Date     time.Time
	Account  string
	Ticker   string
	Quantity int64
	Price    decimal.Decimal
}

// Notional is |quantity| × price.
func (r Record) Notional() decimal.Decimal {
	qty := r.Quantity
	if qty < 0 {
		qty = -qty
	}
	return r.Price.Mul(decimal.NewFromInt(qty))
}
