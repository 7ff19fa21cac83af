package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/classifier"
)

var flagDataset string

var trainModelCmd = &cobra.Command{
	Use:   "train-model",
	Short: "Train the category model and save it to the configured path",
	Args:  cobra.NoArgs,
	RunE:  withApp(runTrainModel),
}

func init() {
	trainModelCmd.Flags().StringVar(&flagDataset, "dataset", "", "YAML training set (default: built-in samples)")
	rootCmd.AddCommand(trainModelCmd)
}

func runTrainModel(_ context.Context, a *app.App, _ []string) error {
	ds := classifier.DefaultDataset()
	if flagDataset != "" {
		data, err := os.ReadFile(flagDataset)
		if err != nil {
			return fmt.Errorf("reading dataset: %w", err)
		}
		if ds, err = classifier.ParseDataset(data); err != nil {
			return err
		}
	}

	m, err := classifier.Train(ds)
	if err != nil {
		return err
	}
	if err := m.Save(a.Config.Classifier.ModelPath); err != nil {
		return err
	}
	a.Models.Set(m)

	fmt.Printf("Trained on %d sample(s) across %d categories, saved to %s\n",
		m.Documents, len(m.Classes), a.Config.Classifier.ModelPath)
	return nil
}
