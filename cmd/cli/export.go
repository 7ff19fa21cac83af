package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/notionsync"
)

var (
	flagExportBigQuery bool
	flagExportNotion   bool
	flagDryRun         bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Mirror transactions and budgets to BigQuery and Notion",
	Args:  cobra.NoArgs,
	RunE:  withApp(runExport),
}

func init() {
	exportCmd.Flags().BoolVar(&flagExportBigQuery, "bigquery", false, "Export to the configured BigQuery dataset")
	exportCmd.Flags().BoolVar(&flagExportNotion, "notion", false, "Sync transactions to the configured Notion database")
	exportCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Report Notion changes without applying them")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, a *app.App, _ []string) error {
	if !flagExportBigQuery && !flagExportNotion {
		return errors.New("nothing to export: pass --bigquery and/or --notion")
	}

	txs, err := a.DB.Transactions().List(ctx)
	if err != nil {
		return err
	}
	names, err := a.CategoryNames(ctx)
	if err != nil {
		return err
	}

	if flagExportBigQuery {
		if a.Warehouse == nil {
			return errors.New("BigQuery export not configured: set bigquery.project_id and bigquery.dataset")
		}
		budgets, err := a.DB.Budgets().List(ctx)
		if err != nil {
			return err
		}
		nTx, err := a.Warehouse.ExportTransactions(ctx, txs, names)
		if err != nil {
			return err
		}
		nB, err := a.Warehouse.ExportBudgets(ctx, budgets, names)
		if err != nil {
			return err
		}
		fmt.Printf("BigQuery: exported %d transaction(s) and %d budget(s)\n", nTx, nB)
	}

	if flagExportNotion {
		if a.Notion == nil || a.Config.Notion.DatabaseID == "" {
			return errors.New("Notion sync not configured: set notion.token and notion.database_id")
		}
		stats, err := notionsync.SyncTransactions(ctx, a.Notion, txs, names, flagDryRun)
		if err != nil {
			return err
		}
		prefix := "Notion"
		if flagDryRun {
			prefix = "Notion (dry run)"
		}
		fmt.Printf("%s: %d created, %d updated, %d archived, %d failed\n",
			prefix, stats.Created, stats.Updated, stats.Deleted, stats.Failed)
	}
	return nil
}
