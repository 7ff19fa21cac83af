package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process DOCUMENT_ID...",
	Short: "Process uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runProcess),
}

var processPendingCmd = &cobra.Command{
	Use:   "process-pending",
	Short: "Process every document not yet processed",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProcessPending),
}

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(processPendingCmd)
}

func runProcess(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 1 {
		res := a.Orchestrator.ProcessDocument(ctx, args[0])
		printResult(res)
		if res.Outcome == pipeline.HardFailure {
			return fmt.Errorf("processing failed: %s", res.Message)
		}
		return nil
	}
	printBatch(a.Orchestrator.ProcessDocuments(ctx, args))
	return nil
}

func runProcessPending(ctx context.Context, a *app.App, _ []string) error {
	batch, err := a.Orchestrator.ProcessPending(ctx)
	if err != nil {
		return err
	}
	if len(batch.Succeeded)+len(batch.Failed) == 0 {
		fmt.Println("No pending documents.")
		return nil
	}
	printBatch(batch)
	return nil
}

func printResult(res pipeline.Result) {
	fmt.Printf("%s: %s (%s)\n", res.DocumentID, res.Message, res.Outcome)
	if res.TransactionID != "" {
		fmt.Printf("  transaction %s, category %s (%.1f%% confidence)\n", res.TransactionID, res.Category, res.Confidence)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printBatch(batch pipeline.BatchResult) {
	fmt.Printf("Processed %d document(s), %d failed, %d transaction(s) created\n",
		len(batch.Succeeded), len(batch.Failed), batch.TotalTransactions)
	for _, f := range batch.Failed {
		fmt.Printf("  %s: %s\n", f.ID, f.Error)
	}
}
