package brokerage

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"time"

	"brokerscrape/internal/ofx"
)

var ofxHeader = regexp.MustCompile(`(?i)<OFX>`)

// Accounts returns the accounts listed on the landing page, fetching them
// only if they have not been fetched during this session.
func (c *Client) Accounts(ctx context.Context) (map[string]Account, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.accounts == nil {
		if err := c.refreshAccounts(ctx); err != nil {
			return nil, err
		}
	}
	return maps.Clone(c.accounts), nil
}

// RefreshAccounts refetches the account listing, balances included.
func (c *Client) RefreshAccounts(ctx context.Context) (map[string]Account, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.refreshAccounts(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(c.accounts), nil
}

func (c *Client) refreshAccounts(ctx context.Context) error {
	tokens, body, err := c.send(ctx, c.tokens, c.variant.Login.Landing, nil)
	c.tokens = tokens
	if err != nil {
		c.tel.ReportBroken(report_client_accounts, err)
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	if !c.scraper.LoggedIn(body) {
		err = fmt.Errorf("%w: account listing is not signed in", ErrExportFailed)
		c.tel.ReportBroken(report_client_accounts, err)
		return err
	}
	accounts, err := c.scraper.ExtractAccounts(body)
	if err != nil {
		c.tel.ReportBroken(report_client_accounts, err)
		return err
	}
	c.accounts = indexAccounts(accounts)
	c.tel.ReportCount(report_client_accounts, int64(len(accounts)))
	return nil
}

// Positions returns the holdings of a single account.
func (c *Client) Positions(ctx context.Context, number string) ([]Position, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.ready(); err != nil {
		return nil, err
	}
	if _, err := c.account(number); err != nil {
		return nil, err
	}

	tokens, body, err := c.runSteps(ctx, c.tokens, c.variant.Positions, map[string]string{
		ParamAccount: number,
	})
	c.tokens = tokens
	if err != nil {
		c.tel.ReportBroken(report_client_positions, err, number)
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	positions, err := c.scraper.ExtractPositions(body)
	if err != nil {
		c.tel.ReportBroken(report_client_positions, err, number)
		return nil, err
	}
	c.tel.ReportCount(report_client_positions, int64(len(positions)))
	return positions, nil
}

// ExportOFX downloads the raw OFX document of an account's activity between
// start and end, both inclusive.
func (c *Client) ExportOFX(ctx context.Context, number string, start, end time.Time) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.exportOFX(ctx, number, start, end)
}

func (c *Client) exportOFX(ctx context.Context, number string, start, end time.Time) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if _, err := c.account(number); err != nil {
		return "", err
	}
	if end.Before(start) {
		return "", fmt.Errorf(
			"%w: end %s is before start %s",
			ErrExportFailed,
			end.Format(time.DateOnly),
			start.Format(time.DateOnly),
		)
	}

	params := map[string]string{
		ParamAccount: number,
		ParamStart:   start.Format(c.variant.DateFormat),
		ParamEnd:     end.Format(c.variant.DateFormat),
	}

	tokens := c.tokens
	defer func() {
		c.tokens = tokens
	}()

	var body string
	var err error
	last := len(c.variant.Export) - 1
	for i, step := range c.variant.Export {
		tokens, body, err = c.send(ctx, tokens, step, params)
		if err != nil {
			c.tel.ReportBroken(report_client_export_ofx, err, number)
			return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
		}
		if i == last {
			break
		}
		if c.scraper.ContainsFailure(body) {
			err = fmt.Errorf("%w: %s: site reported a failure", ErrExportFailed, step.Name)
			c.tel.ReportBroken(report_client_export_ofx, err, number)
			return "", err
		}
		if c.variant.ContinuationPattern != nil {
			key, ok := c.scraper.ExtractSingleValue(body, c.variant.ContinuationPattern)
			if ok {
				params[ParamContinuation] = key
			}
		}
	}

	if !ofxHeader.MatchString(body) {
		reason := "response is not an OFX document"
		if c.scraper.ContainsFailure(body) {
			reason = "site reported a failure"
		}
		err = fmt.Errorf("%w: %s", ErrExportFailed, reason)
		c.tel.ReportBroken(report_client_export_ofx, err, number)
		return "", err
	}
	return body, nil
}

// Transactions exports an account's activity and normalizes it.
//
// When some transactions reference securities missing from the document the
// transactions are still returned alongside an error wrapping
// ofx.ErrUnknownSecurity.
func (c *Client) Transactions(ctx context.Context, number string, start, end time.Time) ([]ofx.Transaction, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	raw, err := c.exportOFX(ctx, number, start, end)
	if err != nil {
		return nil, err
	}
	doc, err := ofx.ParseString(raw)
	if err != nil {
		c.tel.ReportBroken(report_client_transactions, err, number)
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	txns, err := ofx.Normalize(doc)
	if err != nil {
		c.tel.ReportWarning(report_client_transactions, err, number)
	}
	c.tel.ReportCount(report_client_transactions, int64(len(txns)))
	return txns, err
}

// Transfer moves money between two of the session's accounts and returns the
// confirmation number the site issued.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.ready(); err != nil {
		return "", err
	}
	for _, number := range []string{req.From, req.To} {
		if _, err := c.account(number); err != nil {
			return "", err
		}
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount %s must be positive", ErrTransferSetupFailed, req.Amount)
	}
	if req.From == req.To {
		return "", fmt.Errorf("%w: cannot transfer from an account to itself", ErrTransferSetupFailed)
	}

	params := map[string]string{
		ParamFrom:   req.From,
		ParamTo:     req.To,
		ParamAmount: req.Amount.StringFixed(2),
		ParamMemo:   req.Memo,
	}

	tokens := c.tokens
	defer func() {
		c.tokens = tokens
	}()

	stages := []struct {
		steps []Step
		kind  error
	}{
		{steps: c.variant.Transfer.Setup, kind: ErrTransferSetupFailed},
		{steps: c.variant.Transfer.Validate, kind: ErrTransferValidationFailed},
		{steps: c.variant.Transfer.Confirm, kind: ErrTransferConfirmationFailed},
	}

	var body string
	var err error
	for _, stage := range stages {
		tokens, body, err = c.runSteps(ctx, tokens, stage.steps, params)
		if err != nil {
			c.tel.ReportBroken(report_client_transfer, err, req.From, req.To)
			return "", fmt.Errorf("%w: %w", stage.kind, err)
		}
	}

	confirmation, ok := c.scraper.ExtractSingleValue(body, c.variant.ConfirmationPattern)
	if !ok {
		err = fmt.Errorf("%w: no confirmation number on the final page", ErrTransferConfirmationFailed)
		c.tel.ReportBroken(report_client_transfer, err, req.From, req.To)
		return "", err
	}
	c.tel.ReportDebug("transfer confirmed", req.From, req.To, confirmation)
	return confirmation, nil
}
