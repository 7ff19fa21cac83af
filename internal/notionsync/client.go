package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"
)

// ErrNoDatabase is returned when the database a write targets is not configured.
var ErrNoDatabase = errors.New("notionsync: database not configured")

const (
	// pageSize is the largest page the query endpoint returns.
	pageSize = 100
	// rateLimitRetries bounds how often a 429 response is retried.
	rateLimitRetries = 5
)

// Client mirrors the ledger into Notion: one database holds a page per
// transaction, the other a page per notification event.
type Client struct {
	api             *notionapi.Client
	transactionsDB  notionapi.DatabaseID
	notificationsDB notionapi.DatabaseID
}

var _ NotionService = (*Client)(nil)

// NewClient creates a client for the given integration token. Either
// database id may be empty, which disables writes to it.
func NewClient(token, transactionsDB, notificationsDB string, opts ...notionapi.ClientOption) *Client {
	opts = append([]notionapi.ClientOption{notionapi.WithRetry(rateLimitRetries)}, opts...)
	return &Client{
		api:             notionapi.NewClient(notionapi.Token(token), opts...),
		transactionsDB:  notionapi.DatabaseID(transactionsDB),
		notificationsDB: notionapi.DatabaseID(notificationsDB),
	}
}

// TransactionPages returns every live page of the transactions database,
// following pagination cursors.
func (c *Client) TransactionPages(ctx context.Context) ([]notionapi.Page, error) {
	if c.transactionsDB == "" {
		return nil, fmt.Errorf("TransactionPages: %w", ErrNoDatabase)
	}

	var (
		pages  []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		resp, err := c.api.Database.Query(ctx, c.transactionsDB, &notionapi.DatabaseQueryRequest{
			PageSize:    pageSize,
			StartCursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("TransactionPages: %w", err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// CreateTransactionPage adds a transaction page and returns its id.
func (c *Client) CreateTransactionPage(ctx context.Context, props notionapi.Properties) (notionapi.PageID, error) {
	if c.transactionsDB == "" {
		return "", fmt.Errorf("CreateTransactionPage: %w", ErrNoDatabase)
	}
	page, err := c.createPage(ctx, c.transactionsDB, props)
	if err != nil {
		return "", fmt.Errorf("CreateTransactionPage: %w", err)
	}
	return notionapi.PageID(page.ID), nil
}

// UpdateTransactionPage overwrites the properties of a transaction page.
func (c *Client) UpdateTransactionPage(ctx context.Context, pageID notionapi.PageID, props notionapi.Properties) error {
	if _, err := c.api.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		return fmt.Errorf("UpdateTransactionPage: %s: %w", pageID, err)
	}
	return nil
}

// ArchivePage moves a page to the trash. Notion has no hard delete.
func (c *Client) ArchivePage(ctx context.Context, pageID notionapi.PageID) error {
	if _, err := c.api.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{Archived: true}); err != nil {
		return fmt.Errorf("ArchivePage: %s: %w", pageID, err)
	}
	return nil
}

// CreateNotificationPage records one notification event.
func (c *Client) CreateNotificationPage(ctx context.Context, props notionapi.Properties) error {
	if c.notificationsDB == "" {
		return fmt.Errorf("CreateNotificationPage: %w", ErrNoDatabase)
	}
	if _, err := c.createPage(ctx, c.notificationsDB, props); err != nil {
		return fmt.Errorf("CreateNotificationPage: %w", err)
	}
	return nil
}

func (c *Client) createPage(ctx context.Context, db notionapi.DatabaseID, props notionapi.Properties) (*notionapi.Page, error) {
	return c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: db,
		},
		Properties: props,
	})
}
