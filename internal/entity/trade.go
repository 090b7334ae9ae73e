package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Trade is one executed order. (Account, Ticker, TradeDate) is the natural key.
type Trade struct {
	ID        uint64          `gorm:"primaryKey" json:"id"`
	TradeDate datatypes.Date  `gorm:"not null;uniqueIndex:idx_trades_natural_key,priority:3;index:idx_trades_trade_date" json:"trade_date"`
	Account   string          `gorm:"size:50;not null;uniqueIndex:idx_trades_natural_key,priority:1;index:idx_trades_account" json:"account"`
	Ticker    string          `gorm:"size:20;not null;uniqueIndex:idx_trades_natural_key,priority:2" json:"ticker"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// Notional is |quantity| × price.
func (t Trade) Notional() decimal.Decimal {
	qty := t.Quantity
	if qty < 0 {
		qty = -qty
	}
	return t.Price.Mul(decimal.NewFromInt(qty))
}

// Date returns the trade date as a time.Time at UTC midnight.
func (t Trade) Date() time.Time {
	return time.Time(t.TradeDate)
}
