package db

import (
	"context"
)

const upsertAccount = `-- name: UpsertAccount :exec
insert into account (
    number, type, nickname, balance, available_balance, updated_at
) values (?, ?, ?, ?, ?, ?)
on conflict (number) do update set
    type = excluded.type,
    nickname = excluded.nickname,
    balance = excluded.balance,
    available_balance = excluded.available_balance,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(ctx, upsertAccount,
		arg.Number,
		arg.Type,
		arg.Nickname,
		arg.Balance,
		arg.AvailableBalance,
		arg.UpdatedAt,
	)
	return err
}

const listAccounts = `-- name: ListAccounts :many
select number, type, nickname, balance, available_balance, updated_at
from account
order by number
`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.Number,
			&i.Type,
			&i.Nickname,
			&i.Balance,
			&i.AvailableBalance,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertPosition = `-- name: InsertPosition :exec
insert or replace into position (
    account_number, captured_at, symbol, description,
    quantity, quote, market_value, cost_per_share, cost_basis,
    day_change, day_change_pct, change, change_pct
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertPosition(ctx context.Context, arg Position) error {
	_, err := q.db.ExecContext(ctx, insertPosition,
		arg.AccountNumber,
		arg.CapturedAt,
		arg.Symbol,
		arg.Description,
		arg.Quantity,
		arg.Quote,
		arg.MarketValue,
		arg.CostPerShare,
		arg.CostBasis,
		arg.DayChange,
		arg.DayChangePct,
		arg.Change,
		arg.ChangePct,
	)
	return err
}

const listLatestPositions = `-- name: ListLatestPositions :many
select
    account_number, captured_at, symbol, description,
    quantity, quote, market_value, cost_per_share, cost_basis,
    day_change, day_change_pct, change, change_pct
from position
where account_number = ?1 and captured_at = (
    select max(captured_at) from position where account_number = ?1
)
order by symbol
`

func (q *Queries) ListLatestPositions(ctx context.Context, accountNumber string) ([]Position, error) {
	rows, err := q.db.QueryContext(ctx, listLatestPositions, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Position
	for rows.Next() {
		var i Position
		if err := rows.Scan(
			&i.AccountNumber,
			&i.CapturedAt,
			&i.Symbol,
			&i.Description,
			&i.Quantity,
			&i.Quote,
			&i.MarketValue,
			&i.CostPerShare,
			&i.CostBasis,
			&i.DayChange,
			&i.DayChangePct,
			&i.Change,
			&i.ChangePct,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTransaction = `-- name: InsertTransaction :execrows
insert into investment_transaction (
    account_number, fitid, type, symbol, security_id, unresolved,
    trade_date, total, commission, unit_price, units, memo
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (account_number, fitid) do nothing
`

func (q *Queries) InsertTransaction(ctx context.Context, arg InvestmentTransaction) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertTransaction,
		arg.AccountNumber,
		arg.Fitid,
		arg.Type,
		arg.Symbol,
		arg.SecurityID,
		arg.Unresolved,
		arg.TradeDate,
		arg.Total,
		arg.Commission,
		arg.UnitPrice,
		arg.Units,
		arg.Memo,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTransactions = `-- name: ListTransactions :many
select
    account_number, fitid, type, symbol, security_id, unresolved,
    trade_date, total, commission, unit_price, units, memo
from investment_transaction
where account_number = ?
order by trade_date, fitid
`

func (q *Queries) ListTransactions(ctx context.Context, accountNumber string) ([]InvestmentTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvestmentTransaction
	for rows.Next() {
		var i InvestmentTransaction
		if err := rows.Scan(
			&i.AccountNumber,
			&i.Fitid,
			&i.Type,
			&i.Symbol,
			&i.SecurityID,
			&i.Unresolved,
			&i.TradeDate,
			&i.Total,
			&i.Commission,
			&i.UnitPrice,
			&i.Units,
			&i.Memo,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
