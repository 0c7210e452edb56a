// Package brokerage drives the brokerage site's stateful forms: it replays
// the request sequences of each flow, echoes the rotating state tokens back
// on every request and scrapes the returned pages into records.
package brokerage

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"brokerscrape/internal/components/assert"
	"brokerscrape/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_new          = "client.new"
	report_client_login        = "client.login"
	report_client_accounts     = "client.accounts"
	report_client_positions    = "client.positions"
	report_client_export_ofx   = "client.export-ofx"
	report_client_transactions = "client.transactions"
	report_client_transfer     = "client.transfer"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingChallengeAck
	StateAwaitingPassword
	StateAuthenticated
	// StateIndeterminate is entered when login fails partway, the session
	// cannot be resumed.
	StateIndeterminate
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingChallengeAck:
		return "awaiting-challenge-ack"
	case StateAwaitingPassword:
		return "awaiting-password"
	case StateAuthenticated:
		return "authenticated"
	case StateIndeterminate:
		return "indeterminate"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ClientOptions struct {
	Variant Variant
	// BaseUrl overrides Variant.BaseUrl when set.
	BaseUrl string
	// CloudflareBypass wraps the transport so the TLS handshake looks like a browser's.
	CloudflareBypass bool
	// RateLimit is the maximum requests per second, defaults to 2.
	RateLimit rate.Limit
	// Timeout is the per request timeout, defaults to 30 seconds.
	Timeout time.Duration
}

// Client is a single login session with the site.
//
// Every exported method holds the session lock for its whole request chain,
// each response's tokens feed the next request so no two requests of the
// same session may be in flight at once. Distinct clients share nothing.
type Client struct {
	variant Variant
	scraper Scraper
	http    *resty.Client
	tel     telemetry.API

	lock     sync.Mutex
	state    State
	tokens   Tokens
	accounts map[string]Account
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Variant.Name)

	tel = telemetry.NewScopedAPI("brokerage_scraper", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = opts.Variant.BaseUrl
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		tel.ReportBroken(report_client_new, fmt.Errorf("parse base url: %w", err), baseUrl)
		return nil, err
	}
	if parsedBaseUrl.Hostname() == "" {
		return nil, fmt.Errorf("base url %q has no host", baseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	httpClient.SetTimeout(timeout)

	limit := opts.RateLimit
	if limit == 0 {
		limit = 2
	}
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(limit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		variant: opts.Variant,
		scraper: NewScraper(opts.Variant.Fields),
		http:    httpClient,
		tel:     tel,
	}, nil
}

func (c *Client) Variant() Variant {
	return c.variant
}

// State returns where the session is in the login sequence.
func (c *Client) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

func (c *Client) ready() error {
	switch c.state {
	case StateAuthenticated:
		return nil
	case StateIndeterminate:
		return ErrSessionIndeterminate
	}
	return ErrNotAuthenticated
}

func bind(step Step, params map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(step.Bind))
	for field, param := range step.Bind {
		value, ok := params[param]
		if !ok {
			return nil, fmt.Errorf("no value for parameter %q", param)
		}
		out[field] = value
	}
	return out, nil
}

// send issues one step carrying the given tokens and returns the tokens
// merged with whatever the response carried, along with the response body.
//
// The returned tokens are valid even when err is not nil, the site rotates
// them on every round trip regardless of the outcome.
func (c *Client) send(ctx context.Context, tokens Tokens, step Step, params map[string]string) (Tokens, string, error) {
	bound, err := bind(step, params)
	if err != nil {
		return tokens, "", fmt.Errorf("%s: %w", step.Name, err)
	}

	values := make(map[string]string, len(step.Fields)+len(bound)+tokens.Len())
	maps.Copy(values, step.Fields)

	req := c.http.R().SetContext(ctx)
	var res *resty.Response
	switch step.Method {
	case http.MethodGet:
		maps.Copy(values, bound)
		res, err = req.SetQueryParams(values).Get(step.Path)
	case http.MethodPost:
		err = tokens.Require(step.Require...)
		if err != nil {
			return tokens, "", fmt.Errorf("%s: %w", step.Name, err)
		}
		maps.Copy(values, tokens.Snapshot())
		maps.Copy(values, bound)
		res, err = req.SetFormData(values).Post(step.Path)
	default:
		return tokens, "", fmt.Errorf("%s: unsupported method %q", step.Name, step.Method)
	}
	if err != nil {
		return tokens, "", fmt.Errorf("%s: %w", step.Name, err)
	}

	body := string(res.Body())
	tokens = tokens.Merge(c.scraper.ExtractTokens(body))

	if res.IsError() {
		return tokens, body, fmt.Errorf("%s: unexpected status %s", step.Name, res.Status())
	}
	return tokens, body, nil
}

// runSteps sends every step in order, threading the tokens through them.
func (c *Client) runSteps(ctx context.Context, tokens Tokens, steps []Step, params map[string]string) (Tokens, string, error) {
	var body string
	var err error
	for _, step := range steps {
		tokens, body, err = c.send(ctx, tokens, step, params)
		if err != nil {
			return tokens, body, err
		}
		if c.scraper.ContainsFailure(body) {
			return tokens, body, fmt.Errorf("%s: site reported a failure", step.Name)
		}
	}
	return tokens, body, nil
}

func indexAccounts(accounts []Account) map[string]Account {
	out := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		out[a.Number] = a
	}
	return out
}

func (c *Client) account(number string) (Account, error) {
	a, ok := c.accounts[number]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, number)
	}
	return a, nil
}
