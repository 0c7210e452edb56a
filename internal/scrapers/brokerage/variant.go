package brokerage

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
)

// Names of the parameters a Step can bind to form fields.
const (
	ParamUsername     = "username"
	ParamPassword     = "password"
	ParamAccount      = "account"
	ParamStart        = "start"
	ParamEnd          = "end"
	ParamFrom         = "from"
	ParamTo           = "to"
	ParamAmount       = "amount"
	ParamMemo         = "memo"
	ParamContinuation = "continuation"
)

// Step is one request of a flow.
//
// A POST step sends Fields, then the current token snapshot, then the bound
// parameters as form data. A GET step sends Fields and the bound parameters
// as the query string and carries no tokens.
type Step struct {
	Name   string
	Method string
	Path   string
	// Fields are sent verbatim.
	Fields map[string]string
	// Bind maps a form field name to the parameter supplying its value.
	Bind map[string]string
	// Require lists the tokens that must be present before the step is sent.
	Require []string
}

type AccountTypeMarker struct {
	Pattern *regexp.Regexp
	Type    AccountType
}

// FieldNames is everything the scraper needs to know about a variant's markup.
type FieldNames struct {
	ViewState       string
	EventValidation string
	MvcState        string

	// AccountTable selects the element holding the account listing,
	// AccountCells selects the text lines inside it.
	AccountTable string
	AccountCells string
	// AccountTypes is matched in order against the first line of each run.
	AccountTypes []AccountTypeMarker

	// LoggedIn selects an element only present once signed in.
	LoggedIn string
	// FailureMarker matches the text the site embeds in an otherwise
	// successful response when it refused to do something.
	FailureMarker *regexp.Regexp
}

// TokenNames returns the fixed token names used by the variant.
func (f FieldNames) TokenNames() []string {
	var out []string
	for _, name := range []string{f.ViewState, f.EventValidation, f.MvcState} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

type LoginSteps struct {
	Page     Step
	Username Step
	// Advance posts the pseudo-event that moves the form to the challenge view.
	Advance  Step
	Password Step
	Landing  Step
}

type TransferSteps struct {
	Setup    []Step
	Validate []Step
	Confirm  []Step
}

// Variant is one generation of the site's markup and request sequence.
type Variant struct {
	Name       string
	BaseUrl    string
	DateFormat string
	Fields     FieldNames

	Login     LoginSteps
	Positions []Step
	// Export ends with the step whose response is the OFX document.
	Export []Step
	// ContinuationPattern, if set, is matched against every export response
	// and its capture is bound to ParamContinuation for the following steps.
	ContinuationPattern *regexp.Regexp

	Transfer            TransferSteps
	ConfirmationPattern *regexp.Regexp
}

var defaultAccountTypes = []AccountTypeMarker{
	{Pattern: regexp.MustCompile(`(?i)\bIRA\b|retirement|401\(?k\)?`), Type: AccountRetirement},
	{Pattern: regexp.MustCompile(`(?i)brokerage|investing|investment`), Type: AccountInvestment},
	{Pattern: regexp.MustCompile(`(?i)savings|checking|money market|\bCD\b`), Type: AccountSavings},
}

var defaultFailureMarker = regexp.MustCompile(`(?i)we(?:'|&#39;|&rsquo;|’)re sorry|unable to process your request`)

const (
	classicViewState       = "__VIEWSTATE"
	classicEventValidation = "__EVENTVALIDATION"
	modernMvcState         = "__MVCSTATE"
)

// Classic is the older WebForms generation of the site: every form posts
// back to itself and carries view-state and event-validation.
var Classic = Variant{
	Name:       "classic",
	BaseUrl:    "https://secure.savingsdirect.com",
	DateFormat: "01/02/2006",
	Fields: FieldNames{
		ViewState:       classicViewState,
		EventValidation: classicEventValidation,
		AccountTable:    "table#accountSummary",
		AccountCells:    "tr.account td",
		AccountTypes:    defaultAccountTypes,
		LoggedIn:        "a#signOut",
		FailureMarker:   defaultFailureMarker,
	},
	Login: LoginSteps{
		Page: Step{
			Name:   "login-page",
			Method: http.MethodGet,
			Path:   "/myaccount/login.aspx",
		},
		Username: Step{
			Name:    "login-username",
			Method:  http.MethodPost,
			Path:    "/myaccount/login.aspx",
			Fields:  map[string]string{"ctl00$Main$btnContinue": "Continue"},
			Bind:    map[string]string{"ctl00$Main$txtCustomerNumber": ParamUsername},
			Require: []string{classicViewState, classicEventValidation},
		},
		Advance: Step{
			Name:   "login-advance",
			Method: http.MethodPost,
			Path:   "/myaccount/login.aspx",
			Fields: map[string]string{
				"__EVENTTARGET":   "ctl00$Main$lnkShowChallenge",
				"__EVENTARGUMENT": "",
			},
			Require: []string{classicViewState},
		},
		Password: Step{
			Name:    "login-password",
			Method:  http.MethodPost,
			Path:    "/myaccount/login.aspx",
			Fields:  map[string]string{"ctl00$Main$btnSignIn": "Sign In"},
			Bind:    map[string]string{"ctl00$Main$txtPIN": ParamPassword},
			Require: []string{classicViewState, classicEventValidation},
		},
		Landing: Step{
			Name:   "landing",
			Method: http.MethodGet,
			Path:   "/myaccount/summary.aspx",
		},
	},
	Positions: []Step{
		{
			Name:   "positions-page",
			Method: http.MethodGet,
			Path:   "/myaccount/positions.aspx",
		},
		{
			Name:   "positions-select",
			Method: http.MethodPost,
			Path:   "/myaccount/positions.aspx",
			Fields: map[string]string{
				"__EVENTTARGET":   "ctl00$Main$ddlAccount",
				"__EVENTARGUMENT": "",
			},
			Bind:    map[string]string{"ctl00$Main$ddlAccount": ParamAccount},
			Require: []string{classicViewState},
		},
	},
	Export: []Step{
		{
			Name:   "export-page",
			Method: http.MethodGet,
			Path:   "/myaccount/download.aspx",
		},
		{
			Name:   "export-download",
			Method: http.MethodPost,
			Path:   "/myaccount/download.aspx",
			Fields: map[string]string{
				"ctl00$Main$rdoFormat":   "OFX",
				"ctl00$Main$btnDownload": "Download",
			},
			Bind: map[string]string{
				"ctl00$Main$ddlAccount": ParamAccount,
				"ctl00$Main$txtStart":   ParamStart,
				"ctl00$Main$txtEnd":     ParamEnd,
			},
			Require: []string{classicViewState, classicEventValidation},
		},
	},
	Transfer: TransferSteps{
		Setup: []Step{
			{
				Name:   "transfer-page",
				Method: http.MethodGet,
				Path:   "/myaccount/transfer.aspx",
			},
			{
				Name:   "transfer-setup",
				Method: http.MethodPost,
				Path:   "/myaccount/transfer.aspx",
				Fields: map[string]string{"ctl00$Main$btnContinue": "Continue"},
				Bind: map[string]string{
					"ctl00$Main$ddlFrom":   ParamFrom,
					"ctl00$Main$ddlTo":     ParamTo,
					"ctl00$Main$txtAmount": ParamAmount,
					"ctl00$Main$txtMemo":   ParamMemo,
				},
				Require: []string{classicViewState, classicEventValidation},
			},
		},
		Validate: []Step{{
			Name:    "transfer-validate",
			Method:  http.MethodPost,
			Path:    "/myaccount/transfer.aspx",
			Fields:  map[string]string{"ctl00$Main$btnVerify": "Verify"},
			Require: []string{classicViewState, classicEventValidation},
		}},
		Confirm: []Step{{
			Name:    "transfer-confirm",
			Method:  http.MethodPost,
			Path:    "/myaccount/transfer.aspx",
			Fields:  map[string]string{"ctl00$Main$btnSubmit": "Make Transfer"},
			Require: []string{classicViewState, classicEventValidation},
		}},
	},
	ConfirmationPattern: regexp.MustCompile(`(?i)confirmation\s*(?:number|#)\s*:?\s*(?:<[^>]*>\s*)*([A-Z0-9][A-Z0-9-]{3,})`),
}

// Modern is the newer generation of the site: a single MVC state token plus
// per-request GUID named hidden fields, and a two step export download.
var Modern = Variant{
	Name:       "modern",
	BaseUrl:    "https://www.sharebroker.com",
	DateFormat: "2006-01-02",
	Fields: FieldNames{
		ViewState:     "__VIEWSTATE",
		MvcState:      modernMvcState,
		AccountTable:  "table.account-list",
		AccountCells:  "tbody td",
		AccountTypes:  defaultAccountTypes,
		LoggedIn:      "form#signOutForm",
		FailureMarker: defaultFailureMarker,
	},
	Login: LoginSteps{
		Page: Step{
			Name:   "login-page",
			Method: http.MethodGet,
			Path:   "/Account/SignIn",
		},
		Username: Step{
			Name:    "login-username",
			Method:  http.MethodPost,
			Path:    "/Account/SignIn",
			Fields:  map[string]string{"Command": "Next"},
			Bind:    map[string]string{"UserName": ParamUsername},
			Require: []string{modernMvcState},
		},
		Advance: Step{
			Name:    "login-advance",
			Method:  http.MethodPost,
			Path:    "/Account/SignIn",
			Fields:  map[string]string{"Command": "AdvanceView"},
			Require: []string{modernMvcState},
		},
		Password: Step{
			Name:    "login-password",
			Method:  http.MethodPost,
			Path:    "/Account/SignIn",
			Fields:  map[string]string{"Command": "SignIn"},
			Bind:    map[string]string{"Password": ParamPassword},
			Require: []string{modernMvcState},
		},
		Landing: Step{
			Name:   "landing",
			Method: http.MethodGet,
			Path:   "/Home/Overview",
		},
	},
	Positions: []Step{{
		Name:    "positions-select",
		Method:  http.MethodPost,
		Path:    "/Portfolio/Holdings",
		Bind:    map[string]string{"AccountNumber": ParamAccount},
		Require: []string{modernMvcState},
	}},
	Export: []Step{
		{
			Name:   "export-request",
			Method: http.MethodPost,
			Path:   "/Activity/Export",
			Fields: map[string]string{"Format": "OFX"},
			Bind: map[string]string{
				"AccountNumber": ParamAccount,
				"StartDate":     ParamStart,
				"EndDate":       ParamEnd,
			},
			Require: []string{modernMvcState},
		},
		{
			Name:   "export-download",
			Method: http.MethodGet,
			Path:   "/Activity/Download",
			Bind:   map[string]string{"key": ParamContinuation},
		},
	},
	ContinuationPattern: regexp.MustCompile(`data-download-key="([^"]+)"`),
	Transfer: TransferSteps{
		Setup: []Step{{
			Name:   "transfer-setup",
			Method: http.MethodPost,
			Path:   "/Transfer/Setup",
			Bind: map[string]string{
				"FromAccount": ParamFrom,
				"ToAccount":   ParamTo,
				"Amount":      ParamAmount,
				"Memo":        ParamMemo,
			},
			Require: []string{modernMvcState},
		}},
		Validate: []Step{{
			Name:    "transfer-validate",
			Method:  http.MethodPost,
			Path:    "/Transfer/Review",
			Fields:  map[string]string{"Command": "Verify"},
			Require: []string{modernMvcState},
		}},
		Confirm: []Step{{
			Name:    "transfer-confirm",
			Method:  http.MethodPost,
			Path:    "/Transfer/Submit",
			Fields:  map[string]string{"Command": "Submit"},
			Require: []string{modernMvcState},
		}},
	},
	ConfirmationPattern: regexp.MustCompile(`(?i)confirmation\s*(?:number|#)\s*:?\s*(?:<[^>]*>\s*)*([A-Z0-9][A-Z0-9-]{3,})`),
}

var variants = map[string]Variant{
	Classic.Name: Classic,
	Modern.Name:  Modern,
}

// LookupVariant returns the variant registered under name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		known := make([]string, 0, len(variants))
		for k := range variants {
			known = append(known, k)
		}
		sort.Strings(known)
		return Variant{}, fmt.Errorf("unknown site variant %q (known: %v)", name, known)
	}
	return v, nil
}
