package brokerage

import (
	"context"
	"fmt"
)

// Login walks the sign in sequence: username, challenge, password.
//
// The challenge page must show both the secret image and phrase from creds,
// otherwise the password is never sent and ErrAuthenticityCheckFailed is
// returned. Any failure after the username has been sent leaves the session
// indeterminate, the client must then be discarded.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch c.state {
	case StateAuthenticated:
		return nil
	case StateIndeterminate:
		return ErrSessionIndeterminate
	}

	tokens := c.tokens
	defer func() {
		c.tokens = tokens
	}()

	steps := c.variant.Login
	params := map[string]string{
		ParamUsername: creds.Username,
		ParamPassword: creds.Password,
	}
	fail := func(err error) error {
		c.state = StateIndeterminate
		c.tel.ReportBroken(report_client_login, err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	var body string
	var err error

	tokens, _, err = c.send(ctx, tokens, steps.Page, params)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	tokens, body, err = c.send(ctx, tokens, steps.Username, params)
	if err != nil {
		return fail(err)
	}
	if c.scraper.ContainsFailure(body) {
		return fail(fmt.Errorf("%s: site rejected the username", steps.Username.Name))
	}
	c.state = StateAwaitingChallengeAck

	tokens, body, err = c.send(ctx, tokens, steps.Advance, params)
	if err != nil {
		return fail(err)
	}
	if !c.scraper.ExtractVerificationMarkers(body, creds.SecretImage, creds.SecretPhrase) {
		c.state = StateIndeterminate
		c.tel.ReportWarning(report_client_login, ErrAuthenticityCheckFailed)
		return ErrAuthenticityCheckFailed
	}
	c.state = StateAwaitingPassword

	tokens, body, err = c.send(ctx, tokens, steps.Password, params)
	if err != nil {
		return fail(err)
	}
	if c.scraper.ContainsFailure(body) {
		return fail(fmt.Errorf("%s: site rejected the password", steps.Password.Name))
	}

	tokens, body, err = c.send(ctx, tokens, steps.Landing, params)
	if err != nil {
		return fail(err)
	}
	if !c.scraper.LoggedIn(body) {
		return fail(fmt.Errorf("%s: landing page is not signed in", steps.Landing.Name))
	}

	accounts, err := c.scraper.ExtractAccounts(body)
	if err != nil {
		return fail(err)
	}
	c.accounts = indexAccounts(accounts)
	c.state = StateAuthenticated
	c.tel.ReportCount(report_client_accounts, int64(len(accounts)))

	return nil
}
