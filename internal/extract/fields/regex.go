package fields

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
)

var (
	numberPattern  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	percentPattern = regexp.MustCompile(`(\d{1,2}(?:\.\d{1,2})?)\s*%`)
	currencyAmount = regexp.MustCompile(`(?:₹|\b(?i:rs\.?|inr)|\$|£|€)\s*(\d[\d,]*(?:\.\d+)?)`)

	totalLine = regexp.MustCompile(`(?i)\b(?:grand\s+total|total|net\s+payable|amount\s+due|balance\s+due|amount\s+paid|amount|payable)\b`)
	taxLine   = regexp.MustCompile(`(?i)\b(?:gst|cgst|sgst|igst|vat|tax)\b`)
	// Headings and registration numbers mention tax without carrying one.
	taxHeading = regexp.MustCompile(`(?i)\b(?:invoice|gstin)\b`)

	// YYYY-MM-DD
	dateISO = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	// DD/MM/YYYY or DD-MM-YYYY
	dateDMY = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	// DD Mon YYYY, e.g. 15 Jan 2024
	dateText = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+(\d{4})\b`)

	vendorSkip = regexp.MustCompile(`(?i)^(?:tax\s+invoice|invoice|receipt|bill|cash\s+memo|gstin|gst|date|time|tel|phone|ph|mob|email|www\.|http|order|txn|transaction)\b`)
)

const maxVendorRunes = 100

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// paymentKeywords is checked in order; more specific phrases come first.
var paymentKeywords = []struct {
	keyword string
	method  string
}{
	{"credit card", PaymentCreditCard},
	{"debit card", PaymentDebitCard},
	{"net banking", PaymentNetBanking},
	{"netbanking", PaymentNetBanking},
	{"upi", PaymentUPI},
	{"gpay", PaymentUPI},
	{"phonepe", PaymentUPI},
	{"wallet", PaymentWallet},
	{"paytm", PaymentWallet},
	{"visa", PaymentCreditCard},
	{"mastercard", PaymentCreditCard},
	{"cash", PaymentCash},
}

// RegexExtractor extracts fields with line-oriented rules.
type RegexExtractor struct{}

// NewRegexExtractor creates a rule-based extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractAll implements Extractor.
func (e *RegexExtractor) ExtractAll(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	f := &domain.ExtractedFields{
		Vendor:        findVendor(lines),
		Amount:        findAmount(lines),
		Date:          FindDate(text),
		PaymentMethod: findPaymentMethod(text),
	}
	f.TaxAmount, f.TaxPercentage = findTax(lines)
	if f.TaxAmount != nil && f.Amount != nil && !f.TaxAmount.LessThan(*f.Amount) {
		f.TaxAmount = nil
	}
	return normalize(f), nil
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// findVendor returns the first line that reads like a business name.
func findVendor(lines []string) string {
	for _, l := range lines {
		if vendorSkip.MatchString(l) || totalLine.MatchString(l) {
			continue
		}
		letters := 0
		for _, r := range l {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters < 3 {
			continue
		}
		if utf8.RuneCountInString(l) > maxVendorRunes {
			l = string([]rune(l)[:maxVendorRunes])
		}
		return strings.Trim(l, " -:*|")
	}
	return ""
}

// findAmount returns the largest amount on a total-like line, falling back to
// the largest currency-marked amount anywhere.
func findAmount(lines []string) *decimal.Decimal {
	var best *decimal.Decimal
	consider := func(s string) {
		d, err := ParseAmount(s)
		if err != nil || !d.IsPositive() {
			return
		}
		if best == nil || d.GreaterThan(*best) {
			best = &d
		}
	}

	for _, l := range lines {
		if !totalLine.MatchString(l) {
			continue
		}
		nums := numberPattern.FindAllString(stripNonAmounts(l), -1)
		if len(nums) > 0 {
			consider(nums[len(nums)-1])
		}
	}
	if best != nil {
		return best
	}

	for _, l := range lines {
		for _, m := range currencyAmount.FindAllStringSubmatch(l, -1) {
			consider(m[1])
		}
	}
	return best
}

// stripNonAmounts removes percentages and dates so the remaining numbers
// on a line are amounts or counts.
func stripNonAmounts(l string) string {
	for _, re := range []*regexp.Regexp{percentPattern, dateISO, dateDMY, dateText} {
		l = re.ReplaceAllString(l, " ")
	}
	return l
}

// FindDate returns the first valid date in text, trying ISO, day-first
// numeric and day-month-name forms in that order.
func FindDate(text string) *civil.Date {
	if m := dateISO.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			return d
		}
	}
	for _, m := range dateDMY.FindAllStringSubmatch(text, -1) {
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			return d
		}
	}
	for _, m := range dateText.FindAllStringSubmatch(text, -1) {
		month := months[strings.ToLower(m[2])]
		if d, ok := makeDate(m[3], strconv.Itoa(int(month)), m[1]); ok {
			return d
		}
	}
	return nil
}

func makeDate(year, month, day string) (*civil.Date, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, false
	}
	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	if !date.IsValid() {
		return nil, false
	}
	return &date, true
}

// findTax returns the tax amount and percentage from GST/VAT/Tax lines.
func findTax(lines []string) (amount, pct *decimal.Decimal) {
	for _, l := range lines {
		if !taxLine.MatchString(l) || taxHeading.MatchString(l) {
			continue
		}
		if pct == nil {
			if m := percentPattern.FindStringSubmatch(l); m != nil {
				if d, err := decimal.NewFromString(m[1]); err == nil {
					pct = &d
				}
			}
		}
		if amount == nil {
			nums := numberPattern.FindAllString(stripNonAmounts(l), -1)
			if len(nums) > 0 {
				if d, err := ParseAmount(nums[len(nums)-1]); err == nil {
					amount = &d
				}
			}
		}
		if amount != nil && pct != nil {
			break
		}
	}
	return amount, pct
}

func findPaymentMethod(text string) *string {
	lower := strings.ToLower(text)
	for _, pk := range paymentKeywords {
		if containsWord(lower, pk.keyword) {
			method := pk.method
			return &method
		}
	}
	return nil
}

// containsWord reports whether word occurs in s bounded by non-letters.
func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		before := start == 0 || !unicode.IsLetter(rune(s[start-1]))
		after := end == len(s) || !unicode.IsLetter(rune(s[end]))
		if before && after {
			return true
		}
		i = start + 1
	}
}
