package commands

import (
	"log/slog"
	"time"

	"brokerscrape/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(positionsCmd)
}

var positionsCmd = &cobra.Command{
	Use:   "positions <account>",
	Short: "Lists the holdings of an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := login(ctx)
		account := args[0]

		positions, err := client.Positions(ctx, account)
		if err != nil {
			serviceutil.Fatal("failed to get positions", err)
		}

		t := newTable(table.Row{
			"Symbol", "Description", "Quantity", "Quote", "Value",
			"Day Change", "Day %", "Cost Basis", "Gain/Loss", "Gain %",
		})
		for _, p := range positions {
			t.AppendRow(table.Row{
				p.Symbol,
				p.Description,
				p.Quantity.String(),
				usd(p.Quote),
				usd(p.Value),
				usd(p.DayChange),
				percent(p.DayChangePct),
				usd(p.CostBasis),
				usd(p.Change),
				percent(p.ChangePct),
			})
		}
		t.Render()

		store := openStore()
		if store == nil {
			return
		}
		defer store.Close()

		// positions reference their account row
		accounts, err := client.Accounts(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list accounts", err)
		}
		listed := sortedAccounts(accounts)

		now := time.Now()
		err = store.SaveAccounts(ctx, listed, now)
		if err != nil {
			serviceutil.Fatal("failed to save accounts", err)
		}
		err = store.SavePositions(ctx, account, positions, now)
		if err != nil {
			serviceutil.Fatal("failed to save positions", err)
		}
		slog.Info("saved positions", "account", account, "count", len(positions))
	},
}
