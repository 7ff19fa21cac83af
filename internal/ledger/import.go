package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/extract/fields"
	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/store"
)

// Import columns. date and amount are required, the rest optional.
const (
	ColDate          = "date"
	ColAmount        = "amount"
	ColVendor        = "vendor"
	ColDescription   = "description"
	ColCategory      = "category"
	ColPaymentMethod = "payment_method"
	ColTaxAmount     = "tax_amount"
	ColCurrency      = "currency"
)

// RowError describes a skipped import row. Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported      int
	Skipped       []RowError
	BudgetsSynced int
}

// ImportCSV reads transactions from a CSV with a header row. Valid rows are
// committed together; invalid rows are skipped and reported. Budgets are
// reconciled with a full sync afterwards.
//
// The category column accepts a category id or name; empty means Other.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	log := logger.FromContext(ctx)
	var res ImportResult

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return res, fmt.Errorf("ImportCSV: reading CSV: %w", err)
	}
	if len(records) == 0 {
		return res, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColDate, ColAmount} {
		if _, ok := cols[required]; !ok {
			return res, fmt.Errorf("ImportCSV: missing %q column", required)
		}
	}

	sess, err := s.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("ImportCSV: %w", err)
	}
	defer sess.Rollback()

	categories, err := newCategoryResolver(ctx, sess)
	if err != nil {
		return res, fmt.Errorf("ImportCSV: %w", err)
	}

	now := s.now()
	for i, record := range records[1:] {
		line := i + 2
		get := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		e, err := s.parseRow(get, categories)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}

		tx := &domain.Transaction{ID: uuid.New().String(), CreatedAt: now}
		s.apply(tx, e)
		if err := sess.Transactions().Add(ctx, tx); err != nil {
			return ImportResult{}, fmt.Errorf("ImportCSV: line %d: %w", line, err)
		}
		res.Imported++
	}

	if err := sess.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("ImportCSV: %w", err)
	}
	log.Info().Int("imported", res.Imported).Int("skipped", len(res.Skipped)).Msg("CSV import committed")

	if res.Imported > 0 {
		n, err := s.budgets.SyncAll(ctx)
		res.BudgetsSynced = n
		if err != nil {
			s.afterSync(ctx, nil, "", err)
		}
	}
	return res, nil
}

func (s *Service) parseRow(get func(string) string, categories *categoryResolver) (Entry, error) {
	date, err := parseDate(get(ColDate))
	if err != nil {
		return Entry{}, err
	}
	amount, err := fields.ParseAmount(get(ColAmount))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidAmount, get(ColAmount))
	}
	if !amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	cat, err := categories.resolve(get(ColCategory))
	if err != nil {
		return Entry{}, err
	}

	tax := decimal.Zero
	if v := get(ColTaxAmount); v != "" {
		if tax, err = fields.ParseAmount(v); err != nil {
			return Entry{}, fmt.Errorf("invalid tax amount %q", v)
		}
	}

	return Entry{
		Date:          date,
		Amount:        amount,
		Currency:      strings.ToUpper(get(ColCurrency)),
		Vendor:        get(ColVendor),
		Description:   get(ColDescription),
		CategoryID:    cat.ID,
		PaymentMethod: get(ColPaymentMethod),
		TaxAmount:     tax,
	}, nil
}

// parseDate accepts ISO dates and the formats found on receipts.
func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, errors.New("missing date")
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if d := fields.FindDate(s); d != nil {
		return *d, nil
	}
	return civil.Date{}, fmt.Errorf("invalid date %q", s)
}

type categoryResolver struct {
	byID     map[string]*domain.Category
	byName   map[string]*domain.Category
	fallback *domain.Category
}

func newCategoryResolver(ctx context.Context, repos store.Repositories) (*categoryResolver, error) {
	cats, err := repos.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	r := &categoryResolver{
		byID:   make(map[string]*domain.Category, len(cats)),
		byName: make(map[string]*domain.Category, len(cats)),
	}
	for _, c := range cats {
		r.byID[c.ID] = c
		r.byName[strings.ToLower(c.Name)] = c
	}
	r.fallback = r.byName[strings.ToLower(domain.FallbackCategory)]
	return r, nil
}

func (r *categoryResolver) resolve(v string) (*domain.Category, error) {
	if v == "" {
		if r.fallback == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, domain.FallbackCategory)
		}
		return r.fallback, nil
	}
	if c, ok := r.byID[v]; ok {
		return c, nil
	}
	if c, ok := r.byName[strings.ToLower(v)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, v)
}
