package commands

import (
	"os"
	"slices"
	"strings"

	"brokerscrape/internal/scrapers/brokerage"

	"github.com/Rhymond/go-money"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
)

func usd(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func sortedAccounts(accounts map[string]brokerage.Account) []brokerage.Account {
	out := make([]brokerage.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b brokerage.Account) int {
		return strings.Compare(a.Number, b.Number)
	})
	return out
}
