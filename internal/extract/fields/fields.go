// Package fields parses structured financial fields out of raw document text.
package fields

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

// Extractor turns raw text into candidate fields. It returns nil, nil when
// no usable field is present.
type Extractor interface {
	ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error)
}

// Payment methods recognised in document text.
const (
	PaymentCash       = "Cash"
	PaymentCreditCard = "Credit Card"
	PaymentDebitCard  = "Debit Card"
	PaymentUPI        = "UPI"
	PaymentNetBanking = "Net Banking"
	PaymentWallet     = "Wallet"
)

// ParseAmount converts strings like "₹1,234.56" or "Rs. 99" to a decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"₹", "Rs.", "Rs", "rs.", "INR", "$", "£", "€", ",", " ", "\u00a0"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	return decimal.NewFromString(s)
}

// normalize trims the vendor and drops non-positive amounts.
func normalize(f *domain.ExtractedFields) *domain.ExtractedFields {
	if f == nil {
		return nil
	}
	f.Vendor = strings.TrimSpace(f.Vendor)
	if f.Amount != nil && !f.Amount.IsPositive() {
		f.Amount = nil
	}
	if f.TaxAmount != nil && f.TaxAmount.IsNegative() {
		f.TaxAmount = nil
	}
	if f.PaymentMethod != nil && strings.TrimSpace(*f.PaymentMethod) == "" {
		f.PaymentMethod = nil
	}
	if f.Empty() {
		return nil
	}
	return f
}
