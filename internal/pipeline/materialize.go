package pipeline

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

var (
	// ErrInvalidAmount is returned for an extracted amount that is not positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrFallbackCategoryMissing is returned when no category could be resolved.
	ErrFallbackCategoryMissing = fmt.Errorf("fallback category %q not found", domain.FallbackCategory)
)

// Defaults fill transaction fields the document did not provide.
type Defaults struct {
	Currency string
	Today    civil.Date
	Now      time.Time
}

// materialize builds the transaction for a document. It returns nil when no
// amount was extracted.
func materialize(doc *domain.Document, f *domain.ExtractedFields, cat *domain.Category, d Defaults) (*domain.Transaction, error) {
	if f == nil || f.Amount == nil {
		return nil, nil
	}
	if !f.Amount.IsPositive() {
		return nil, fmt.Errorf("materialize: %w: %s", ErrInvalidAmount, f.Amount.String())
	}
	if cat == nil {
		return nil, fmt.Errorf("materialize: %w", ErrFallbackCategoryMissing)
	}

	date := d.Today
	if f.Date != nil {
		date = *f.Date
	}
	currency := d.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	tax := decimal.Zero
	if f.TaxAmount != nil {
		tax = *f.TaxAmount
	}
	var payment string
	if f.PaymentMethod != nil {
		payment = *f.PaymentMethod
	}

	docID := doc.ID
	return &domain.Transaction{
		ID:            uuid.New().String(),
		DocumentID:    &docID,
		Date:          date,
		Amount:        *f.Amount,
		Currency:      currency,
		VendorName:    f.VendorOrUnknown(),
		Description:   "Extracted from " + doc.OriginalFilename,
		CategoryID:    cat.ID,
		PaymentMethod: payment,
		TaxAmount:     tax,
		TaxPercentage: f.TaxPercentage,
		CreatedAt:     d.Now,
		UpdatedAt:     d.Now,
	}, nil
}
