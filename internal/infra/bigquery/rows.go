package bigquery

import (
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/notify"
)

// TransactionRow is one row of the transactions export table.
type TransactionRow struct {
	TransactionID string              `bigquery:"transaction_id"` // REQUIRED
	DocumentID    bigquery.NullString `bigquery:"document_id"`    // NULLABLE, empty for manual entries

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC
	Currency        string     `bigquery:"currency"`         // REQUIRED

	VendorName    string              `bigquery:"vendor_name"`
	Description   bigquery.NullString `bigquery:"description"`
	CategoryID    string              `bigquery:"category_id"`
	CategoryName  bigquery.NullString `bigquery:"category_name"`
	PaymentMethod bigquery.NullString `bigquery:"payment_method"`

	TaxAmount     *big.Rat `bigquery:"tax_amount"`     // REQUIRED NUMERIC
	TaxPercentage *big.Rat `bigquery:"tax_percentage"` // NULLABLE NUMERIC

	CreatedTS  time.Time `bigquery:"created_ts"`
	UpdatedTS  time.Time `bigquery:"updated_ts"`
	ExportedTS time.Time `bigquery:"exported_ts"`
}

// BudgetRow is one row of the budgets export table.
type BudgetRow struct {
	BudgetID     string              `bigquery:"budget_id"`
	CategoryID   string              `bigquery:"category_id"`
	CategoryName bigquery.NullString `bigquery:"category_name"`
	Period       string              `bigquery:"period"`       // YYYY-MM
	PeriodStart  civil.Date          `bigquery:"period_start"` // first day of the month
	LimitAmount  *big.Rat            `bigquery:"limit_amount"`
	Spent        *big.Rat            `bigquery:"spent"`
	UpdatedTS    time.Time           `bigquery:"updated_ts"`
	ExportedTS   time.Time           `bigquery:"exported_ts"`
}

// NotificationRow is one row of the notifications table.
type NotificationRow struct {
	NotificationID string            `bigquery:"notification_id"`
	Type           string            `bigquery:"type"`
	Severity       string            `bigquery:"severity"`
	Title          string            `bigquery:"title"`
	Message        string            `bigquery:"message"`
	Payload        bigquery.NullJSON `bigquery:"payload"`
	CreatedTS      time.Time         `bigquery:"created_ts"`
}

// CategorySpend is one row of the spend-by-category query.
type CategorySpend struct {
	CategoryName bigquery.NullString `bigquery:"category_name"`
	Spent        *big.Rat            `bigquery:"spent"`
	Transactions int64               `bigquery:"transactions"`
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratPtr(d *decimal.Decimal) *big.Rat {
	if d == nil {
		return nil
	}
	return d.Rat()
}

// NewTransactionRow converts a transaction for export.
func NewTransactionRow(tx *domain.Transaction, categoryName string, exportedAt time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: tx.Date,
		Amount:          tx.Amount.Rat(),
		Currency:        tx.Currency,
		VendorName:      tx.VendorName,
		Description:     nullString(tx.Description),
		CategoryID:      tx.CategoryID,
		CategoryName:    nullString(categoryName),
		PaymentMethod:   nullString(tx.PaymentMethod),
		TaxAmount:       tx.TaxAmount.Rat(),
		TaxPercentage:   ratPtr(tx.TaxPercentage),
		CreatedTS:       tx.CreatedAt,
		UpdatedTS:       tx.UpdatedAt,
		ExportedTS:      exportedAt,
	}
	if tx.DocumentID != nil {
		row.DocumentID = nullString(*tx.DocumentID)
	}
	return row
}

// NewBudgetRow converts a budget for export.
func NewBudgetRow(b *domain.Budget, categoryName string, exportedAt time.Time) *BudgetRow {
	return &BudgetRow{
		BudgetID:     b.ID,
		CategoryID:   b.CategoryID,
		CategoryName: nullString(categoryName),
		Period:       b.Period.String(),
		PeriodStart:  b.Period.Start(),
		LimitAmount:  b.Limit.Rat(),
		Spent:        b.Spent.Rat(),
		UpdatedTS:    b.UpdatedAt,
		ExportedTS:   exportedAt,
	}
}

// NewNotificationRow converts a notification event.
func NewNotificationRow(ev notify.Event) (*NotificationRow, error) {
	row := &NotificationRow{
		NotificationID: ev.ID,
		Type:           ev.Type,
		Severity:       ev.Severity,
		Title:          ev.Title,
		Message:        ev.Message,
		CreatedTS:      ev.OccurredAt,
	}
	if len(ev.Payload) > 0 {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, err
		}
		row.Payload = bigquery.NullJSON{JSONVal: string(payload), Valid: true}
	}
	return row, nil
}
