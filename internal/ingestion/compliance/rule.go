package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"golang-trade-clearinghouse/internal/entity"
)

// BatchContext carries the per-file aggregates a rule may need for one trade.
type BatchContext struct {
	Account      string
	Notional     decimal.Decimal
	AccountTotal decimal.Decimal
}

// Ratio is Notional / AccountTotal, or zero when the total is zero.
func (b BatchContext) Ratio() decimal.Decimal {
	if b.AccountTotal.IsZero() {
		return decimal.Zero
	}
	return b.Notional.Div(b.AccountTotal)
}

// Violation is a rule firing on one trade.
type Violation struct {
	Rule        string
	Severity    entity.Severity
	Description string
}

// Rule is one independently evaluable compliance check.
type Rule interface {
	Name() string
	Evaluate(trade entity.Trade, batch BatchContext) *Violation
}

// BasketConcentrationRule flags a trade whose notional is more than Threshold of its
// account's total notional in the same file.
type BasketConcentrationRule struct {
	threshold decimal.Decimal
	name      string
}

// NewBasketConcentrationRule creates the rule for the given ratio threshold (0.20 = 20%).
func NewBasketConcentrationRule(threshold decimal.Decimal) *BasketConcentrationRule {
	return &BasketConcentrationRule{
		threshold: threshold,
		name:      fmt.Sprintf("Basket Concentration (>%s%%)", threshold.Mul(decimal.NewFromInt(100)).String()),
	}
}

func (r *BasketConcentrationRule) Name() string {
	return r.name
}

func (r *BasketConcentrationRule) Evaluate(trade entity.Trade, batch BatchContext) *Violation {
	ratio := batch.Ratio()
	if !ratio.GreaterThan(r.threshold) {
		return nil
	}
	return &Violation{
		Rule:     r.name,
		Severity: entity.SeverityWarning,
		Description: fmt.Sprintf("Ticker %s is %s%% of account %s basket value",
			trade.Ticker, ratio.Mul(decimal.NewFromInt(100)).StringFixed(1), batch.Account),
	}
}

// LargeOrderRule flags a trade whose absolute quantity exceeds a fixed share count.
type LargeOrderRule struct {
	limit int64
	name  string
}

// NewLargeOrderRule creates the rule for the given share limit.
func NewLargeOrderRule(limit int64) *LargeOrderRule {
	return &LargeOrderRule{limit: limit, name: fmt.Sprintf("High Volume (>%d)", limit)}
}

func (r *LargeOrderRule) Name() string {
	return r.name
}

func (r *LargeOrderRule) Evaluate(trade entity.Trade, _ BatchContext) *Violation {
	qty := trade.Quantity
	if qty < 0 {
		qty = -qty
	}
	if qty <= r.limit {
		return nil
	}
	return &Violation{
		Rule:        r.name,
		Severity:    entity.SeverityWarning,
		Description: fmt.Sprintf("Trade quantity %d exceeds threshold of %d.", qty, r.limit),
	}
}
