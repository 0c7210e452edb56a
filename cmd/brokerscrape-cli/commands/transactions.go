package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"brokerscrape/internal/ofx"
	"brokerscrape/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	transactionsFrom *string
	transactionsTo   *string
	transactionsRaw  *bool
	transactionsSort *bool
)

func init() {
	transactionsFrom = transactionsCmd.Flags().String("from", "", "The first day to export (YYYY-MM-DD), defaults to 90 days before --to.")
	transactionsTo = transactionsCmd.Flags().String("to", "", "The last day to export (YYYY-MM-DD), defaults to today.")
	transactionsRaw = transactionsCmd.Flags().Bool("raw", false, "Print the OFX document as downloaded.")
	transactionsSort = transactionsCmd.Flags().Bool("sort", false, "Order transactions by trade date instead of by kind.")
	rootCmd.AddCommand(transactionsCmd)
}

func parseDay(value string, location *time.Location) time.Time {
	day, err := time.ParseInLocation(time.DateOnly, value, location)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("invalid date %q", value), err)
	}
	return day
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <account> [--from YYYY-MM-DD] [--to YYYY-MM-DD] [--raw]",
	Short: "Exports the investment activity of an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := clock()
		now := c.Now()
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Location())
		if *transactionsTo != "" {
			end = parseDay(*transactionsTo, c.Location())
		}
		start := end.AddDate(0, 0, -90)
		if *transactionsFrom != "" {
			start = parseDay(*transactionsFrom, c.Location())
		}

		ctx := cmd.Context()
		client := login(ctx)
		account := args[0]

		if *transactionsRaw {
			raw, err := client.ExportOFX(ctx, account, start, end)
			if err != nil {
				serviceutil.Fatal("failed to export", err)
			}
			fmt.Println(raw)
			return
		}

		txns, err := client.Transactions(ctx, account, start, end)
		if errors.Is(err, ofx.ErrUnknownSecurity) {
			slog.Warn("some transactions reference unknown securities", "err", err.Error())
		} else if err != nil {
			serviceutil.Fatal("failed to export", err)
		}
		if *transactionsSort {
			ofx.SortByDate(txns)
		}

		t := newTable(table.Row{"Date", "Type", "Symbol", "Units", "Price", "Commission", "Total", "FITID"})
		for _, txn := range txns {
			symbol := txn.Symbol
			if txn.Unresolved {
				symbol += " (?)"
			}
			t.AppendRow(table.Row{
				txn.TradeDate.Format(time.DateOnly),
				txn.Type,
				symbol,
				txn.Units.String(),
				usd(txn.UnitPrice),
				usd(txn.Commission),
				usd(txn.Total),
				txn.FITID,
			})
		}
		t.Render()

		store := openStore()
		if store == nil {
			return
		}
		defer store.Close()

		accounts, err := client.Accounts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list accounts", err)
		}
		err = store.SaveAccounts(ctx, sortedAccounts(accounts), time.Now())
		if err != nil {
			serviceutil.Fatal("failed to save accounts", err)
		}
		inserted, err := store.SaveTransactions(ctx, account, txns)
		if err != nil {
			serviceutil.Fatal("failed to save transactions", err)
		}
		slog.Info("saved transactions", "account", account, "new", inserted, "total", len(txns))
	},
}
