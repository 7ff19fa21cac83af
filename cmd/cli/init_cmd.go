package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database, seed categories and prepare the category model",
	Args:  cobra.NoArgs,
	RunE:  withApp(runInit),
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(ctx context.Context, a *app.App, _ []string) error {
	cats, err := a.DB.Categories().List(ctx)
	if err != nil {
		return err
	}
	if _, err := a.Models.Model(ctx); err != nil {
		return fmt.Errorf("preparing category model: %w", err)
	}

	fmt.Printf("Database:       %s\n", a.Config.Database.Path)
	fmt.Printf("Categories:     %d\n", len(cats))
	fmt.Printf("Category model: %s\n", a.Config.Classifier.ModelPath)
	return nil
}
