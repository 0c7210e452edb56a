// Package db persists scraped accounts, positions and transactions to sqlite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"brokerscrape/internal/ofx"
	"brokerscrape/internal/scrapers/brokerage"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	makeTx MakeTx
}

func wrapOpen(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpen(err)
		}
	}

	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpen(err)
	}

	// sqlite allows a single writer, and every connection to ":memory:" is
	// its own database
	sqlite.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		Schema,
	} {
		_, err = sqlite.Exec(stmt)
		if err != nil {
			sqlite.Close()
			return nil, wrapOpen(err)
		}
	}
	return NewStore(sqlite), nil
}

// NewStore wraps an already migrated database.
func NewStore(sqlite *sql.DB) *Store {
	return &Store{
		db:     sqlite,
		makeTx: NewMakeTx(sqlite),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *Queries) error) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	err = fn(tx)
	if err != nil {
		return errors.Join(err, discard())
	}
	return commit()
}

// SaveAccounts upserts the account listing as of the given time.
func (s *Store) SaveAccounts(ctx context.Context, accounts []brokerage.Account, at time.Time) error {
	return s.inTx(ctx, func(tx *Queries) error {
		for _, a := range accounts {
			available := decimal.NullDecimal{}
			if a.HasAvailable {
				available = decimal.NewNullDecimal(a.AvailableBalance)
			}
			err := tx.UpsertAccount(ctx, Account{
				Number:           a.Number,
				Type:             string(a.Type),
				Nickname:         a.Nickname,
				Balance:          a.Balance,
				AvailableBalance: available,
				UpdatedAt:        at.Unix(),
			})
			if err != nil {
				return fmt.Errorf("save account %s: %w", a.Number, err)
			}
		}
		return nil
	})
}

// Accounts returns every saved account ordered by number.
func (s *Store) Accounts(ctx context.Context) ([]brokerage.Account, error) {
	rows, err := New(s.db).ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]brokerage.Account, len(rows))
	for i, r := range rows {
		out[i] = brokerage.Account{
			Number:           r.Number,
			Type:             brokerage.AccountType(r.Type),
			Nickname:         r.Nickname,
			Balance:          r.Balance,
			AvailableBalance: r.AvailableBalance.Decimal,
			HasAvailable:     r.AvailableBalance.Valid,
		}
	}
	return out, nil
}

// SavePositions records a snapshot of an account's holdings taken at the
// given time. The account must have been saved first.
func (s *Store) SavePositions(ctx context.Context, account string, positions []brokerage.Position, at time.Time) error {
	return s.inTx(ctx, func(tx *Queries) error {
		for _, p := range positions {
			err := tx.InsertPosition(ctx, Position{
				AccountNumber: account,
				CapturedAt:    at.Unix(),
				Symbol:        p.Symbol,
				Description:   p.Description,
				Quantity:      p.Quantity,
				Quote:         p.Quote,
				MarketValue:   p.Value,
				CostPerShare:  p.CostPerShare,
				CostBasis:     p.CostBasis,
				DayChange:     p.DayChange,
				DayChangePct:  p.DayChangePct,
				Change:        p.Change,
				ChangePct:     p.ChangePct,
			})
			if err != nil {
				return fmt.Errorf("save position %s: %w", p.Symbol, err)
			}
		}
		return nil
	})
}

// LatestPositions returns the most recent holdings snapshot of an account.
func (s *Store) LatestPositions(ctx context.Context, account string) ([]brokerage.Position, error) {
	rows, err := New(s.db).ListLatestPositions(ctx, account)
	if err != nil {
		return nil, err
	}
	out := make([]brokerage.Position, len(rows))
	for i, r := range rows {
		out[i] = brokerage.Position{
			Symbol:       r.Symbol,
			Description:  r.Description,
			Quantity:     r.Quantity,
			Quote:        r.Quote,
			Value:        r.MarketValue,
			CostPerShare: r.CostPerShare,
			CostBasis:    r.CostBasis,
			DayChange:    r.DayChange,
			DayChangePct: r.DayChangePct,
			Change:       r.Change,
			ChangePct:    r.ChangePct,
		}
	}
	return out, nil
}

// SaveTransactions stores the transactions of an account, skipping those
// whose FITID was already stored. It returns how many were new.
func (s *Store) SaveTransactions(ctx context.Context, account string, txns []ofx.Transaction) (int, error) {
	inserted := 0
	err := s.inTx(ctx, func(tx *Queries) error {
		for _, t := range txns {
			if t.FITID == "" {
				return fmt.Errorf("transaction on %s has no FITID", t.TradeDate.Format(time.DateOnly))
			}
			n, err := tx.InsertTransaction(ctx, InvestmentTransaction{
				AccountNumber: account,
				Fitid:         t.FITID,
				Type:          string(t.Type),
				Symbol:        t.Symbol,
				SecurityID:    t.SecurityId,
				Unresolved:    t.Unresolved,
				TradeDate:     t.TradeDate.Unix(),
				Total:         t.Total,
				Commission:    t.Commission,
				UnitPrice:     t.UnitPrice,
				Units:         t.Units,
				Memo:          t.Memo,
			})
			if err != nil {
				return fmt.Errorf("save transaction %s: %w", t.FITID, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Transactions returns the stored transactions of an account by trade date.
func (s *Store) Transactions(ctx context.Context, account string) ([]ofx.Transaction, error) {
	rows, err := New(s.db).ListTransactions(ctx, account)
	if err != nil {
		return nil, err
	}
	out := make([]ofx.Transaction, len(rows))
	for i, r := range rows {
		out[i] = ofx.Transaction{
			Type:       ofx.TransactionType(r.Type),
			Symbol:     r.Symbol,
			SecurityId: r.SecurityID,
			Unresolved: r.Unresolved,
			TradeDate:  time.Unix(r.TradeDate, 0).UTC(),
			Total:      r.Total,
			Commission: r.Commission,
			UnitPrice:  r.UnitPrice,
			Units:      r.Units,
			Memo:       r.Memo,
			FITID:      r.Fitid,
		}
	}
	return out, nil
}
