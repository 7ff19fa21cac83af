package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/cli"
	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/ledger"
)

// entryFlags holds the values shared by add and update.
type entryFlags struct {
	date          string
	amount        string
	vendor        string
	description   string
	category      string
	paymentMethod string
	tax           string
	currency      string
}

func (f *entryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.date, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	fs.StringVar(&f.amount, "amount", "", "Amount, must be positive")
	fs.StringVar(&f.vendor, "vendor", "", "Vendor name")
	fs.StringVar(&f.description, "description", "", "Free-form description")
	fs.StringVar(&f.category, "category", domain.FallbackCategory, "Category id or name")
	fs.StringVar(&f.paymentMethod, "payment-method", "", "Payment method")
	fs.StringVar(&f.tax, "tax", "", "Tax amount")
	fs.StringVar(&f.currency, "currency", "", "Currency code (default from config)")
}

var (
	addFlags    entryFlags
	updateFlags entryFlags
	flagTxLimit int
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "Manage transactions by hand",
}

var transactionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Args:  cobra.NoArgs,
	RunE:  withApp(runTransactionsAdd),
}

var transactionsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change fields of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := cmd.Flags()
		return withApp(func(ctx context.Context, a *app.App, args []string) error {
			return runTransactionsUpdate(ctx, a, fs, args)
		})(cmd, args)
	},
}

var transactionsDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete one or more transactions",
	Long:  "Delete the given transactions and recompute the budgets they counted towards. Unknown ids are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runTransactionsDelete),
}

var transactionsImportCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Import transactions from a CSV file with a header row",
	Long: `Import transactions from a CSV file. Recognised columns:
  date, amount (required), vendor, description, category, payment_method, tax_amount, currency`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runTransactionsImport),
}

var transactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent transactions",
	Args:  cobra.NoArgs,
	RunE:  withApp(runTransactionsList),
}

func init() {
	addFlags.register(transactionsAddCmd.Flags())
	_ = transactionsAddCmd.MarkFlagRequired("amount")
	updateFlags.register(transactionsUpdateCmd.Flags())
	transactionsListCmd.Flags().IntVarP(&flagTxLimit, "limit", "n", 20, "Number of transactions to show")

	transactionsCmd.AddCommand(transactionsAddCmd, transactionsUpdateCmd, transactionsDeleteCmd,
		transactionsImportCmd, transactionsListCmd)
	rootCmd.AddCommand(transactionsCmd)
}

func runTransactionsAdd(ctx context.Context, a *app.App, _ []string) error {
	e := ledger.Entry{
		Date:          civil.DateOf(time.Now()),
		TaxAmount:     decimal.Zero,
		Vendor:        addFlags.vendor,
		Description:   addFlags.description,
		PaymentMethod: addFlags.paymentMethod,
		Currency:      addFlags.currency,
	}
	if err := applyEntryFlags(ctx, a, &e, &addFlags, nil); err != nil {
		return err
	}

	dups, err := a.Ledger.Duplicates(ctx, e)
	if err != nil {
		return err
	}

	tx, err := a.Ledger.Create(ctx, e)
	if err != nil {
		return err
	}
	fmt.Printf("Created transaction %s\n", tx.ID)
	if len(dups) > 0 {
		fmt.Println(cli.Muted(fmt.Sprintf("Warning: %d earlier transaction(s) share this vendor and amount:", len(dups))))
		for _, d := range dups {
			fmt.Printf("  %s  %s  %s\n", d.ID, d.Date, d.Amount.StringFixed(2))
		}
	}
	return nil
}

func runTransactionsUpdate(ctx context.Context, a *app.App, fs *pflag.FlagSet, args []string) error {
	tx, err := a.DB.Transactions().Get(ctx, args[0])
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("transaction %q not found", args[0])
	}

	e := ledger.Entry{
		Date:          tx.Date,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Vendor:        tx.VendorName,
		Description:   tx.Description,
		CategoryID:    tx.CategoryID,
		PaymentMethod: tx.PaymentMethod,
		TaxAmount:     tx.TaxAmount,
		TaxPercentage: tx.TaxPercentage,
	}
	if fs.Changed("vendor") {
		e.Vendor = updateFlags.vendor
	}
	if fs.Changed("description") {
		e.Description = updateFlags.description
	}
	if fs.Changed("payment-method") {
		e.PaymentMethod = updateFlags.paymentMethod
	}
	if fs.Changed("currency") {
		e.Currency = updateFlags.currency
	}
	if err := applyEntryFlags(ctx, a, &e, &updateFlags, fs); err != nil {
		return err
	}

	if _, err := a.Ledger.Update(ctx, tx.ID, e); err != nil {
		return err
	}
	fmt.Printf("Updated transaction %s\n", tx.ID)
	return nil
}

// applyEntryFlags parses the typed flags into e. With a non-nil fs only
// flags the user set are applied.
func applyEntryFlags(ctx context.Context, a *app.App, e *ledger.Entry, f *entryFlags, fs *pflag.FlagSet) error {
	set := func(name string) bool { return fs == nil || fs.Changed(name) }

	if set("date") && f.date != "" {
		d, err := civil.ParseDate(f.date)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", f.date, err)
		}
		e.Date = d
	}
	if set("amount") && f.amount != "" {
		amt, err := decimal.NewFromString(f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", f.amount, err)
		}
		e.Amount = amt
	}
	if set("tax") && f.tax != "" {
		tax, err := decimal.NewFromString(f.tax)
		if err != nil {
			return fmt.Errorf("invalid tax %q: %w", f.tax, err)
		}
		e.TaxAmount = tax
	}
	if set("category") {
		cat, err := resolveCategory(ctx, a, f.category)
		if err != nil {
			return err
		}
		e.CategoryID = cat.ID
	}
	return nil
}

func runTransactionsDelete(ctx context.Context, a *app.App, args []string) error {
	n, err := a.Ledger.DeleteMany(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d of %d transaction(s)\n", n, len(args))
	return nil
}

func runTransactionsImport(ctx context.Context, a *app.App, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.Ledger.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d transaction(s), skipped %d row(s), synchronized %d budget(s)\n",
		res.Imported, len(res.Skipped), res.BudgetsSynced)
	for _, rowErr := range res.Skipped {
		fmt.Printf("  %v\n", rowErr)
	}
	if res.Imported == 0 && len(res.Skipped) > 0 {
		return errors.New("no rows imported")
	}
	return nil
}

func runTransactionsList(ctx context.Context, a *app.App, _ []string) error {
	txs, err := a.DB.Transactions().List(ctx)
	if err != nil {
		return err
	}
	names, err := a.CategoryNames(ctx)
	if err != nil {
		return err
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[j].Date.Before(txs[i].Date) })
	if flagTxLimit > 0 && len(txs) > flagTxLimit {
		txs = txs[:flagTxLimit]
	}

	t := cli.Table{
		Headers:    []string{"ID", "DATE", "VENDOR", "CATEGORY", "AMOUNT"},
		RightAlign: []int{4},
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []string{
			tx.ID, tx.Date.String(), tx.VendorName, names[tx.CategoryID], tx.Amount.StringFixed(2) + " " + tx.Currency,
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}
