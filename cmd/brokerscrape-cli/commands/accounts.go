package commands

import (
	"log/slog"
	"time"

	"brokerscrape/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Lists the accounts of the login with their balances.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := login(ctx)

		accounts, err := client.Accounts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list accounts", err)
		}

		sorted := sortedAccounts(accounts)

		t := newTable(table.Row{"Number", "Type", "Nickname", "Balance", "Available"})
		for _, a := range sorted {
			available := ""
			if a.HasAvailable {
				available = usd(a.AvailableBalance)
			}
			t.AppendRow(table.Row{a.Number, a.Type, a.Nickname, usd(a.Balance), available})
		}
		t.Render()

		store := openStore()
		if store == nil {
			return
		}
		defer store.Close()
		err = store.SaveAccounts(ctx, sorted, time.Now())
		if err != nil {
			serviceutil.Fatal("failed to save accounts", err)
		}
		slog.Info("saved accounts", "count", len(sorted), "db", *dbPath)
	},
}
