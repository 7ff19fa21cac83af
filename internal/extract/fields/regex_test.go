package fields

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReceipt = `TAX INVOICE
Acme Superstore
12 MG Road, Bengaluru
GSTIN: 29ABCDE1234F1Z5
Date: 15/03/2024
Milk 2 x 30.00        60.00
Bread                 45.00
Sub Total            1,016.95
CGST 9%                91.53
SGST 9%                91.52
Grand Total     ₹ 1,200.00
Paid by UPI
Thank you!`

func TestRegexExtractor_Receipt(t *testing.T) {
	f, err := NewRegexExtractor().ExtractAll(context.Background(), sampleReceipt)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "Acme Superstore", f.Vendor)
	require.NotNil(t, f.Amount)
	assert.True(t, f.Amount.Equal(decimal.RequireFromString("1200")), f.Amount.String())
	require.NotNil(t, f.Date)
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 15}, *f.Date)
	require.NotNil(t, f.PaymentMethod)
	assert.Equal(t, PaymentUPI, *f.PaymentMethod)
	require.NotNil(t, f.TaxPercentage)
	assert.Equal(t, "9", f.TaxPercentage.String())
	require.NotNil(t, f.TaxAmount)
	assert.Equal(t, "91.53", f.TaxAmount.String())
}

func TestRegexExtractor_Amounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // empty means no amount
	}{
		{"rupee total", "Acme\nTotal: Rs. 1,200.50", "1200.5"},
		{"largest total wins", "Acme\nSubtotal 100\nTotal 118\nTotal items 3", "118"},
		{"INR marker", "Acme\nAmount INR 450", "450"},
		{"dollar fallback without total line", "Acme\nPaid $12.99 today", "12.99"},
		{"date on total line ignored", "Acme\nAmount paid on 01/02/2024 Rs 75", "75"},
		{"percentage ignored", "Acme\nTotal incl. 18% GST 590", "590"},
		{"no amount", "Acme Store\nThanks for visiting", ""},
		{"zero is not an amount", "Acme\nTotal 0.00", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRegexExtractor().ExtractAll(context.Background(), tt.text)
			require.NoError(t, err)
			require.NotNil(t, f)
			if tt.want == "" {
				assert.Nil(t, f.Amount)
				return
			}
			require.NotNil(t, f.Amount)
			assert.True(t, f.Amount.Equal(decimal.RequireFromString(tt.want)), "got %s", f.Amount)
		})
	}
}

func TestRegexExtractor_Tax(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantTax string // empty means no tax
	}{
		{"invoice number is not tax", "TAX INVOICE No. 88231\nAcme Stores\nTotal: 1,200.00", ""},
		{"gstin is not tax", "Acme Stores\nGSTIN 29ABCDE1234F1Z5\nTotal: 1,200.00", ""},
		{"tax not below total is dropped", "Acme Stores\nTax 1,500.00\nTotal: 1,200.00", ""},
		{"tax inside total line is dropped", "Acme Stores\nTotal incl. 18% GST 590", ""},
		{"gst line", "TAX INVOICE No. 88231\nAcme Stores\nGST 18%: 183.05\nTotal: 1,200.00", "183.05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRegexExtractor().ExtractAll(context.Background(), tt.text)
			require.NoError(t, err)
			require.NotNil(t, f)
			require.NotNil(t, f.Amount)
			assert.Equal(t, "Acme Stores", f.Vendor)
			if tt.wantTax == "" {
				assert.Nil(t, f.TaxAmount)
				return
			}
			require.NotNil(t, f.TaxAmount)
			assert.Equal(t, tt.wantTax, f.TaxAmount.String())
		})
	}
}

func TestRegexExtractor_LongVendorKeepsRunes(t *testing.T) {
	line := strings.Repeat("a", 99) + "₹ store"

	f, err := NewRegexExtractor().ExtractAll(context.Background(), line+"\nTotal 10")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.True(t, utf8.ValidString(f.Vendor))
	assert.Equal(t, strings.Repeat("a", 99)+"₹", f.Vendor)
}

func TestFindDate(t *testing.T) {
	tests := []struct {
		text string
		want *civil.Date
	}{
		{"Date: 2024-01-31", &civil.Date{Year: 2024, Month: 1, Day: 31}},
		{"on 05/11/2023 at noon", &civil.Date{Year: 2023, Month: 11, Day: 5}},
		{"on 05-11-2023", &civil.Date{Year: 2023, Month: 11, Day: 5}},
		{"Issued 7 Feb 2025", &civil.Date{Year: 2025, Month: 2, Day: 7}},
		{"Issued 7 September, 2025", &civil.Date{Year: 2025, Month: 9, Day: 7}},
		{"invalid 31/02/2024 then 01/03/2024", &civil.Date{Year: 2024, Month: 3, Day: 1}},
		{"no date here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, FindDate(tt.text))
		})
	}
}

func TestRegexExtractor_PaymentMethods(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Acme\nPaid by Credit Card ending 1234", PaymentCreditCard},
		{"Acme\nDEBIT CARD", PaymentDebitCard},
		{"Acme\nMode: NetBanking", PaymentNetBanking},
		{"Acme\nPaytm wallet", PaymentWallet},
		{"Acme\nCASH", PaymentCash},
		{"Acme\nCashew nuts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f, err := NewRegexExtractor().ExtractAll(context.Background(), tt.text)
			require.NoError(t, err)
			require.NotNil(t, f)
			if tt.want == "" {
				assert.Nil(t, f.PaymentMethod)
				return
			}
			require.NotNil(t, f.PaymentMethod)
			assert.Equal(t, tt.want, *f.PaymentMethod)
		})
	}
}

func TestRegexExtractor_NothingUsable(t *testing.T) {
	for _, text := range []string{"", "   \n  ", "12 34\n--"} {
		f, err := NewRegexExtractor().ExtractAll(context.Background(), text)
		require.NoError(t, err)
		assert.Nil(t, f, "text %q", text)
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"₹1,234.56": "1234.56",
		"Rs. 99":    "99",
		"INR 10":    "10",
		"£5.5":      "5.5",
		"€ 7":       "7",
	}
	for in, want := range tests {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s", in, got)
	}

	_, err := ParseAmount("abc")
	assert.Error(t, err)
}
