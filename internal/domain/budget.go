package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is the spending target and recorded spend for one category in one
// month. Spent is only ever written by the budget synchronizer.
type Budget struct {
	ID         string
	CategoryID string
	Period     Period

	Limit decimal.Decimal
	Spent decimal.Decimal

	UpdatedAt time.Time
}

// Key returns the (category, period) pair of the budget.
func (b *Budget) Key() BudgetKey {
	return BudgetKey{CategoryID: b.CategoryID, Period: b.Period}
}

// UsedPercent returns Spent as a percentage of Limit, or 0 without a positive limit.
func (b *Budget) UsedPercent() float64 {
	if !b.Limit.IsPositive() {
		return 0
	}
	pct, _ := b.Spent.Div(b.Limit).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
