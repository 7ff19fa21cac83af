package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/notify"
)

// Property names of the Notion databases this package writes.
const (
	PropTransactionID = "Transaction ID"
	PropVendor        = "Vendor"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropDate          = "Date"
	PropCategory      = "Category"
	PropPayment       = "Payment Method"
	PropDescription   = "Description"
	PropSource        = "Source"

	PropTitle    = "Title"
	PropType     = "Type"
	PropSeverity = "Severity"
	PropMessage  = "Message"
	PropEventID  = "Event ID"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

func civilDateProperty(d civil.Date) notionapi.DateProperty {
	return dateProperty(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC))
}

// TransactionToNotionProperties converts a transaction to Notion properties.
// The vendor is the page title and the transaction id is kept for deduplication.
func TransactionToNotionProperties(tx *domain.Transaction, categoryName string) notionapi.Properties {
	amount, _ := tx.Amount.Float64()
	props := notionapi.Properties{
		PropVendor:        notionapi.TitleProperty{Title: richText(tx.VendorName)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropDate:          civilDateProperty(tx.Date),
	}

	if tx.Currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Currency}}
	}
	if categoryName != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: categoryName}}
	}
	if tx.PaymentMethod != "" {
		props[PropPayment] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.PaymentMethod}}
	}
	if tx.Description != "" {
		props[PropDescription] = notionapi.RichTextProperty{RichText: richText(tx.Description)}
	}

	source := "Manual"
	if tx.DocumentID != nil {
		source = "Document"
	}
	props[PropSource] = notionapi.SelectProperty{Select: notionapi.Option{Name: source}}

	return props
}

// NotificationToNotionProperties converts a notification event to Notion properties.
func NotificationToNotionProperties(ev notify.Event) notionapi.Properties {
	return notionapi.Properties{
		PropTitle:    notionapi.TitleProperty{Title: richText(ev.Title)},
		PropEventID:  notionapi.RichTextProperty{RichText: richText(ev.ID)},
		PropType:     notionapi.SelectProperty{Select: notionapi.Option{Name: ev.Type}},
		PropSeverity: notionapi.SelectProperty{Select: notionapi.Option{Name: ev.Severity}},
		PropMessage:  notionapi.RichTextProperty{RichText: richText(ev.Message)},
		PropDate:     dateProperty(ev.OccurredAt),
	}
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
