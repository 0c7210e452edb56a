package brokerage

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPunctuation = strings.NewReplacer(
	"$", "",
	",", "",
	"%", "",
	"(", "",
	")", "",
	"+", "",
	" ", "",
)

// parseAmount parses a rendered currency, quantity or percent value.
// Blank cells and placeholder dashes are zero.
func parseAmount(text string) (decimal.Decimal, error) {
	cleaned := currencyPunctuation.Replace(strings.TrimSpace(text))
	switch strings.ToLower(cleaned) {
	case "", "-", "--", "n/a":
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", text, err)
	}
	return d, nil
}

// parseChange parses a combined "amount percent" cell such as
// "-$3.10 (2.5%)". The percent takes its sign from the amount: a negative
// amount always yields a negative percent.
func parseChange(text string) (amount, percent decimal.Decimal, err error) {
	fields := strings.Fields(text)
	if len(fields) == 1 {
		// "+$12.00(16.1%)", the two halves were on separate lines in the markup
		idx := strings.Index(fields[0], "(")
		if idx > 0 {
			fields = []string{fields[0][:idx], fields[0][idx:]}
		}
	}
	if len(fields) == 0 {
		return decimal.Zero, decimal.Zero, nil
	}

	amountText := fields[0]
	amount, err = parseAmount(amountText)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	percent, err = parseAmount(strings.Join(fields[1:], ""))
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if strings.Contains(amountText, "-") && percent.IsPositive() {
		percent = percent.Neg()
	}
	return amount, percent, nil
}
