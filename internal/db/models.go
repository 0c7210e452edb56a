package db

import (
	"github.com/shopspring/decimal"
)

type Account struct {
	Number           string
	Type             string
	Nickname         string
	Balance          decimal.Decimal
	AvailableBalance decimal.NullDecimal
	UpdatedAt        int64
}

type Position struct {
	AccountNumber string
	CapturedAt    int64
	Symbol        string
	Description   string
	Quantity      decimal.Decimal
	Quote         decimal.Decimal
	MarketValue   decimal.Decimal
	CostPerShare  decimal.Decimal
	CostBasis     decimal.Decimal
	DayChange     decimal.Decimal
	DayChangePct  decimal.Decimal
	Change        decimal.Decimal
	ChangePct     decimal.Decimal
}

type InvestmentTransaction struct {
	AccountNumber string
	Fitid         string
	Type          string
	Symbol        string
	SecurityID    string
	Unresolved    bool
	TradeDate     int64
	Total         decimal.Decimal
	Commission    decimal.Decimal
	UnitPrice     decimal.Decimal
	Units         decimal.Decimal
	Memo          string
}
