package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
)

var flagProcessAfterUpload bool

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Store files and register them as documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runUpload),
}

func init() {
	uploadCmd.Flags().BoolVarP(&flagProcessAfterUpload, "process", "p", false, "Process the uploaded documents right away")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(ctx context.Context, a *app.App, args []string) error {
	ids := make([]string, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err := a.Upload(ctx, path, data)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s as document %s\n", path, doc.ID)
		ids = append(ids, doc.ID)
	}

	if !flagProcessAfterUpload {
		return nil
	}
	printBatch(a.Orchestrator.ProcessDocuments(ctx, ids))
	return nil
}
