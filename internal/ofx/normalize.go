package ofx

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownSecurity is returned (joined, once per occurrence) by Normalize
// when a transaction references a security id missing from the security list.
var ErrUnknownSecurity = errors.New("unknown security")

type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionReinvest TransactionType = "reinvest"
	TransactionOther    TransactionType = "other"
)

type Transaction struct {
	Type TransactionType
	// Symbol is the ticker of the security, or the raw security id when
	// Unresolved is set.
	Symbol     string
	SecurityId string
	Unresolved bool
	TradeDate  time.Time
	// Total is the negated statement total, outflows are negative.
	Total      decimal.Decimal
	Commission decimal.Decimal
	UnitPrice  decimal.Decimal
	Units      decimal.Decimal
	Memo       string
	FITID      string
}

// Tickers builds the security id -> ticker lookup, securities without a
// ticker are left out.
func Tickers(securities []Security) map[string]string {
	out := make(map[string]string, len(securities))
	for _, s := range securities {
		if s.Ticker == "" {
			continue
		}
		out[s.Id] = s.Ticker
	}
	return out
}

// Normalize converts every transaction of the document into a Transaction.
//
// Records are emitted buys first, then sells, reinvestments and finally
// other transactions, each section in document order. No sorting is done.
//
// A transaction whose security is not in the security list is still
// returned, with its raw security id as Symbol and Unresolved set, and the
// returned error wraps ErrUnknownSecurity. Callers that can live with
// unresolved symbols may use the records despite the error.
func Normalize(doc Document) ([]Transaction, error) {
	tickers := Tickers(doc.Securities)

	sections := []struct {
		kind    TransactionType
		entries []Entry
	}{
		{kind: TransactionBuy, entries: doc.Buys},
		{kind: TransactionSell, entries: doc.Sells},
		{kind: TransactionReinvest, entries: doc.Reinvestments},
		{kind: TransactionOther, entries: doc.Other},
	}

	var out []Transaction
	var errs []error
	for _, section := range sections {
		for _, e := range section.entries {
			t := Transaction{
				Type:       section.kind,
				SecurityId: e.SecurityId,
				TradeDate:  e.TradeDate,
				Total:      e.Total.Neg(),
				Commission: e.Commission,
				UnitPrice:  e.UnitPrice,
				Units:      e.Units,
				Memo:       e.Memo,
				FITID:      e.FITID,
			}

			ticker, ok := tickers[e.SecurityId]
			if ok {
				t.Symbol = ticker
			} else {
				t.Symbol = e.SecurityId
				t.Unresolved = true
				errs = append(errs, fmt.Errorf("%w: %q (%s %s)", ErrUnknownSecurity, e.SecurityId, section.kind, e.FITID))
			}

			out = append(out, t)
		}
	}

	return out, errors.Join(errs...)
}

// SortByDate orders transactions by trade date, keeping the normalized order
// for transactions on the same date.
func SortByDate(txns []Transaction) {
	slices.SortStableFunc(txns, func(a, b Transaction) int {
		return a.TradeDate.Compare(b.TradeDate)
	})
}
