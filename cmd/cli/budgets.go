package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/cli"
	"github.com/dvloznov/finance-ingest/internal/domain"
)

var (
	flagBudgetPeriod string
	flagBudgetLimit  string
)

var syncBudgetsCmd = &cobra.Command{
	Use:   "sync-budgets",
	Short: "Recompute every budget from its transactions",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSyncBudgets),
}

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Manage monthly category budgets",
}

var budgetsSetCmd = &cobra.Command{
	Use:   "set CATEGORY",
	Short: "Set the limit of a category's budget for a month",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runBudgetsSet),
}

var budgetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets with spend and usage",
	Args:  cobra.NoArgs,
	RunE:  withApp(runBudgetsList),
}

func init() {
	budgetsSetCmd.Flags().StringVar(&flagBudgetPeriod, "period", "", "Month as YYYY-MM (default: current month)")
	budgetsSetCmd.Flags().StringVar(&flagBudgetLimit, "limit", "", "Spending limit")
	_ = budgetsSetCmd.MarkFlagRequired("limit")
	budgetsListCmd.Flags().StringVar(&flagBudgetPeriod, "period", "", "Only show this month (YYYY-MM)")

	budgetsCmd.AddCommand(budgetsSetCmd, budgetsListCmd)
	rootCmd.AddCommand(syncBudgetsCmd, budgetsCmd)
}

func runSyncBudgets(ctx context.Context, a *app.App, _ []string) error {
	n, err := a.Budgets.SyncAll(ctx)
	fmt.Printf("Synchronized %d budget(s)\n", n)
	return err
}

func runBudgetsSet(ctx context.Context, a *app.App, args []string) error {
	cat, err := resolveCategory(ctx, a, args[0])
	if err != nil {
		return err
	}
	period, err := periodFlag()
	if err != nil {
		return err
	}
	limit, err := decimal.NewFromString(flagBudgetLimit)
	if err != nil {
		return fmt.Errorf("invalid limit %q: %w", flagBudgetLimit, err)
	}

	b, err := a.Budgets.SetLimit(ctx, domain.BudgetKey{CategoryID: cat.ID, Period: period}, limit)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: limit %s, spent %s (%.0f%%)\n",
		cat.Name, b.Period, b.Limit.StringFixed(2), b.Spent.StringFixed(2), b.UsedPercent())
	return nil
}

func runBudgetsList(ctx context.Context, a *app.App, _ []string) error {
	budgets, err := a.DB.Budgets().List(ctx)
	if err != nil {
		return err
	}
	names, err := a.CategoryNames(ctx)
	if err != nil {
		return err
	}

	var filter *domain.Period
	if flagBudgetPeriod != "" {
		p, err := domain.ParsePeriod(flagBudgetPeriod)
		if err != nil {
			return err
		}
		filter = &p
	}

	sort.Slice(budgets, func(i, j int) bool {
		if budgets[i].Period != budgets[j].Period {
			return budgets[i].Period.String() > budgets[j].Period.String()
		}
		return names[budgets[i].CategoryID] < names[budgets[j].CategoryID]
	})

	t := cli.Table{
		Headers:    []string{"PERIOD", "CATEGORY", "LIMIT", "SPENT", "USED"},
		RightAlign: []int{2, 3},
	}
	th := a.Config.Budget
	for _, b := range budgets {
		if filter != nil && b.Period != *filter {
			continue
		}
		used := cli.Muted("no limit")
		if b.Limit.IsPositive() {
			used = cli.RenderUsageBar(b.UsedPercent(), th.WarningPercent, th.ExceededPercent, 20)
		}
		t.Rows = append(t.Rows, []string{
			b.Period.String(), names[b.CategoryID], b.Limit.StringFixed(2), b.Spent.StringFixed(2), used,
		})
	}
	if len(t.Rows) == 0 {
		fmt.Println("No budgets.")
		return nil
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}

func periodFlag() (domain.Period, error) {
	if flagBudgetPeriod == "" {
		now := time.Now()
		return domain.Period{Year: now.Year(), Month: now.Month()}, nil
	}
	return domain.ParsePeriod(flagBudgetPeriod)
}

// resolveCategory accepts a category id or name.
func resolveCategory(ctx context.Context, a *app.App, v string) (*domain.Category, error) {
	cat, err := a.DB.Categories().Get(ctx, v)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		if cat, err = a.DB.Categories().GetByName(ctx, v); err != nil {
			return nil, err
		}
	}
	if cat == nil {
		return nil, fmt.Errorf("unknown category %q", v)
	}
	return cat, nil
}
