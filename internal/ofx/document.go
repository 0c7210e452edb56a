// Package ofx turns OFX investment statements into flat transaction records.
package ofx

import (
	"time"

	"github.com/shopspring/decimal"
)

// Security is an entry of the statement's security list.
type Security struct {
	Id     string
	Ticker string
	Name   string
}

// Entry is a single investment transaction as it appears in the statement,
// before symbols are resolved or signs are normalized.
type Entry struct {
	SecurityId string
	FITID      string
	TradeDate  time.Time
	Total      decimal.Decimal
	Commission decimal.Decimal
	UnitPrice  decimal.Decimal
	Units      decimal.Decimal
	Memo       string
}

// Document is a parsed OFX investment statement reduced to the sections
// the normalizer reads. Any section may be empty.
type Document struct {
	Securities    []Security
	Buys          []Entry
	Sells         []Entry
	Reinvestments []Entry
	// Other holds transactions that are neither buys, sells nor reinvestments
	// (dividends paid out as cash, interest).
	Other []Entry
}
