package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ExtractedFields is the structured candidate record parsed out of raw
// document text. It is consumed once by the materializer and discarded.
type ExtractedFields struct {
	Vendor        string
	Amount        *decimal.Decimal
	Date          *civil.Date
	PaymentMethod *string
	TaxAmount     *decimal.Decimal
	TaxPercentage *decimal.Decimal
}

// VendorOrUnknown returns the vendor, defaulting to UnknownVendor.
func (f *ExtractedFields) VendorOrUnknown() string {
	if f == nil || f.Vendor == "" {
		return UnknownVendor
	}
	return f.Vendor
}

// Empty reports whether no field at all was found.
func (f *ExtractedFields) Empty() bool {
	return f.Vendor == "" && f.Amount == nil && f.Date == nil &&
		f.PaymentMethod == nil && f.TaxAmount == nil && f.TaxPercentage == nil
}
