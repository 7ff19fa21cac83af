package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/logger"
)

// BatchSize defines the number of transactions to process in a single batch
const BatchSize = 100

// SyncStats counts what a sync did.
type SyncStats struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// SyncTransactions mirrors transactions into a Notion database. Pages are
// matched by their Transaction ID property: matches are updated, missing
// transactions are created and pages for transactions that no longer exist
// are archived, as are extra pages carrying an already matched id. Per-page
// failures are logged and counted.
func SyncTransactions(ctx context.Context, notion NotionService, txs []*domain.Transaction, categoryNames map[string]string, dryRun bool) (SyncStats, error) {
	log := logger.FromContext(ctx)
	var stats SyncStats

	pages, err := notion.TransactionPages(ctx)
	if err != nil {
		return stats, fmt.Errorf("SyncTransactions: %w", err)
	}

	valid := make(map[string]bool, len(txs))
	for _, tx := range txs {
		valid[tx.ID] = true
	}

	existing := make(map[string]notionapi.PageID, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] {
			if _, dup := existing[txID]; !dup {
				existing[txID] = notionapi.PageID(page.ID)
				continue
			}
		}
		if dryRun {
			log.Info().Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
			stats.Deleted++
			continue
		}
		if err := notion.ArchivePage(ctx, notionapi.PageID(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	for i := 0; i < len(txs); i += BatchSize {
		end := min(i+BatchSize, len(txs))
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range txs[i:end] {
			props := TransactionToNotionProperties(tx, categoryNames[tx.CategoryID])
			pageID, found := existing[tx.ID]

			switch {
			case dryRun && found:
				stats.Updated++
			case dryRun:
				stats.Created++
			case found:
				if err := notion.UpdateTransactionPage(ctx, pageID, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", string(pageID)).Msg("Failed to update Notion page")
					stats.Failed++
					continue
				}
				stats.Updated++
			default:
				if _, err := notion.CreateTransactionPage(ctx, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
					stats.Failed++
					continue
				}
				stats.Created++
			}
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("failed", stats.Failed).
		Int("total", len(txs)).
		Bool("dry_run", dryRun).
		Msg("Transaction sync to Notion completed")
	return stats, nil
}
