package brokerage

import (
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountInvestment AccountType = "investment"
	AccountRetirement AccountType = "retirement"
	AccountSavings    AccountType = "savings"
)

type Account struct {
	// Number uniquely identifies the account within a login.
	Number   string
	Type     AccountType
	Nickname string
	Balance  decimal.Decimal
	// AvailableBalance is only shown for brokerage accounts, HasAvailable
	// tells whether the site displayed one.
	AvailableBalance decimal.Decimal
	HasAvailable     bool
}

type Position struct {
	Symbol       string
	Description  string
	Quantity     decimal.Decimal
	Quote        decimal.Decimal
	Value        decimal.Decimal
	CostPerShare decimal.Decimal
	CostBasis    decimal.Decimal
	DayChange    decimal.Decimal
	DayChangePct decimal.Decimal
	Change       decimal.Decimal
	ChangePct    decimal.Decimal
}

type Credentials struct {
	// Username is the customer number / saver id typed on the first page.
	Username string
	// Password is the password or PIN.
	Password string
	// SecretImage is the file name of the image chosen when the account was
	// set up, it is compared against the challenge page, never sent.
	SecretImage string
	// SecretPhrase is compared against the challenge page, never sent.
	SecretPhrase string
}

type TransferRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
	Memo   string
}
