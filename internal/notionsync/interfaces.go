package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the set of Notion operations the mirror needs. Each
// method is bound to the database it writes to.
type NotionService interface {
	TransactionPages(ctx context.Context) ([]notionapi.Page, error)
	CreateTransactionPage(ctx context.Context, props notionapi.Properties) (notionapi.PageID, error)
	UpdateTransactionPage(ctx context.Context, pageID notionapi.PageID, props notionapi.Properties) error
	ArchivePage(ctx context.Context, pageID notionapi.PageID) error
	CreateNotificationPage(ctx context.Context, props notionapi.Properties) error
}
