package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a source document does not state a currency.
const DefaultCurrency = "INR"

// UnknownVendor is the vendor name recorded when none could be extracted.
const UnknownVendor = "Unknown"

// Transaction is a single dated, categorized monetary movement.
// DocumentID is nil for manually entered transactions.
type Transaction struct {
	ID         string
	DocumentID *string

	Date     civil.Date
	Amount   decimal.Decimal // always > 0
	Currency string

	VendorName    string
	Description   string
	CategoryID    string
	PaymentMethod string

	TaxAmount     decimal.Decimal
	TaxPercentage *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period returns the budget period the transaction contributes to.
func (t *Transaction) Period() Period {
	return PeriodOf(t.Date)
}

// Key returns the (category, period) pair the transaction contributes to.
func (t *Transaction) Key() BudgetKey {
	return BudgetKey{CategoryID: t.CategoryID, Period: t.Period()}
}
