package pipeline

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

func TestMaterialize(t *testing.T) {
	doc := &domain.Document{ID: "doc-1", OriginalFilename: "bill.pdf"}
	cat := &domain.Category{ID: "cat-1", Name: "Utilities"}
	today := civil.Date{Year: 2024, Month: time.June, Day: 1}
	defaults := Defaults{Currency: "INR", Today: today, Now: fixedNow}
	date := civil.Date{Year: 2024, Month: time.May, Day: 30}
	card := "Credit Card"

	tests := []struct {
		name    string
		fields  *domain.ExtractedFields
		cat     *domain.Category
		wantNil bool
		wantErr error
		check   func(t *testing.T, tx *domain.Transaction)
	}{
		{
			name:    "no amount",
			fields:  &domain.ExtractedFields{Vendor: "Power Co"},
			cat:     cat,
			wantNil: true,
		},
		{
			name:    "zero amount",
			fields:  &domain.ExtractedFields{Amount: dec("0")},
			cat:     cat,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "missing category",
			fields:  &domain.ExtractedFields{Amount: dec("10")},
			wantErr: ErrFallbackCategoryMissing,
		},
		{
			name: "all fields",
			fields: &domain.ExtractedFields{
				Vendor: "Power Co", Amount: dec("830.40"), Date: &date,
				PaymentMethod: &card, TaxAmount: dec("40.40"), TaxPercentage: dec("5"),
			},
			cat: cat,
			check: func(t *testing.T, tx *domain.Transaction) {
				assert.Equal(t, date, tx.Date)
				assert.Equal(t, "Power Co", tx.VendorName)
				assert.Equal(t, "Credit Card", tx.PaymentMethod)
				assert.Equal(t, "40.4", tx.TaxAmount.String())
				assert.Equal(t, "5", tx.TaxPercentage.String())
				assert.Equal(t, "Extracted from bill.pdf", tx.Description)
				require.NotNil(t, tx.DocumentID)
				assert.Equal(t, "doc-1", *tx.DocumentID)
				assert.Equal(t, "cat-1", tx.CategoryID)
			},
		},
		{
			name:   "defaults",
			fields: &domain.ExtractedFields{Amount: dec("1")},
			cat:    cat,
			check: func(t *testing.T, tx *domain.Transaction) {
				assert.Equal(t, today, tx.Date)
				assert.Equal(t, domain.UnknownVendor, tx.VendorName)
				assert.Equal(t, "INR", tx.Currency)
				assert.True(t, tx.TaxAmount.IsZero())
				assert.Nil(t, tx.TaxPercentage)
				assert.Empty(t, tx.PaymentMethod)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := materialize(doc, tt.fields, tt.cat, defaults)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, tx)
				return
			}
			require.NotNil(t, tx)
			assert.NotEmpty(t, tx.ID)
			tt.check(t, tx)
		})
	}
}
