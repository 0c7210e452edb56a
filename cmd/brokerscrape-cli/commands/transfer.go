package commands

import (
	"fmt"
	"log/slog"

	"brokerscrape/internal/scrapers/brokerage"
	"brokerscrape/pkg/serviceutil"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	transferMemo *string
	transferYes  *bool
)

func init() {
	transferMemo = transferCmd.Flags().String("memo", "", "A memo to attach to the transfer.")
	transferYes = transferCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation.")
	rootCmd.AddCommand(transferCmd)
}

var transferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <amount>",
	Short: "Moves money between two accounts of the login.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		amount, err := decimal.NewFromString(args[2])
		if err != nil {
			serviceutil.Fatal("invalid amount", err)
		}

		if !*transferYes {
			fmt.Printf("Transfer %s from %s to %s? [y/N] ", usd(amount), args[0], args[1])
			var answer string
			fmt.Scanln(&answer)
			if answer != "y" && answer != "Y" {
				fmt.Println("aborted")
				return
			}
		}

		ctx := cmd.Context()
		client := login(ctx)

		confirmation, err := client.Transfer(ctx, brokerage.TransferRequest{
			From:   args[0],
			To:     args[1],
			Amount: amount,
			Memo:   *transferMemo,
		})
		if err != nil {
			serviceutil.Fatal("transfer failed", err)
		}

		slog.Info("transfer scheduled", "from", args[0], "to", args[1], "amount", amount.StringFixed(2))
		fmt.Println(confirmation)
	},
}
