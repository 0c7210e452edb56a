package brokerage

import (
	"errors"
	"fmt"
	stdhtml "html"
	"regexp"
	"strings"

	"brokerscrape/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Scraper extracts tokens and records from the pages of one site variant.
// It holds no state, every method depends only on its input.
type Scraper struct {
	fields FieldNames
}

func NewScraper(fields FieldNames) Scraper {
	return Scraper{fields: fields}
}

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// hidden fields named with a bare or braced GUID rotate on every request
var guidFieldName = regexp.MustCompile(
	`^(?:[0-9a-fA-F]{32}|\{[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\})$`,
)

// partial postback responses carry tokens as "<len>|hiddenField|<name>|<value>|"
var deltaHiddenField = regexp.MustCompile(`\|hiddenField\|([^|]+)\|([^|]*)\|`)

func (s Scraper) isTokenName(name string) bool {
	for _, known := range s.fields.TokenNames() {
		if name == known {
			return true
		}
	}
	return guidFieldName.MatchString(name)
}

// ExtractTokens returns every state token found in the document. Documents
// without tokens yield an empty map. Empty values are returned as well so
// they can replace stale ones.
func (s Scraper) ExtractTokens(html string) map[string]string {
	tokens := map[string]string{}

	doc, err := parseDocument(html)
	if err == nil {
		doc.Find("input[name]").Each(func(_ int, input *goquery.Selection) {
			name := input.AttrOr("name", "")
			if !s.isTokenName(name) {
				return
			}
			tokens[name] = input.AttrOr("value", "")
		})
	}

	for _, match := range deltaHiddenField.FindAllStringSubmatch(html, -1) {
		if !s.isTokenName(match[1]) {
			continue
		}
		tokens[match[1]] = match[2]
	}

	return tokens
}

var accountNumberRegex = regexp.MustCompile(`[0-9][0-9-]*[0-9]|[0-9]`)

func (s Scraper) accountType(line string) (AccountType, bool) {
	for _, marker := range s.fields.AccountTypes {
		if marker.Pattern.MatchString(line) {
			return marker.Type, true
		}
	}
	return "", false
}

func isPlaceholder(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "-", "--", "n/a":
		return true
	}
	return false
}

// AccountSchema is the row layout of the account listing:
// type, nickname, number, available balance placeholder, balance.
func (s Scraper) AccountSchema() RowSchema[Account] {
	return RowSchema[Account]{Fields: []RowField[Account]{
		{
			Name: "type",
			Decode: func(line string, a *Account) error {
				t, ok := s.accountType(line)
				if !ok {
					return errors.New("not an account type marker")
				}
				a.Type = t
				return nil
			},
		},
		{
			Name: "nickname",
			Decode: func(line string, a *Account) error {
				a.Nickname = line
				return nil
			},
		},
		{
			Name: "number",
			Decode: func(line string, a *Account) error {
				number := accountNumberRegex.FindString(line)
				if number == "" {
					return errors.New("no account number")
				}
				a.Number = number
				return nil
			},
		},
		{
			Name: "available",
			Decode: func(line string, a *Account) error {
				if a.Type != AccountInvestment || isPlaceholder(line) {
					return nil
				}
				available, err := parseAmount(line)
				if err != nil {
					return err
				}
				a.AvailableBalance = available
				a.HasAvailable = true
				return nil
			},
		},
		{
			Name: "balance",
			Decode: func(line string, a *Account) error {
				balance, err := parseAmount(line)
				if err != nil {
					return err
				}
				a.Balance = balance
				return nil
			},
		},
	}}
}

// ExtractAccounts decodes the account listing. A page without the listing,
// a partial row run or a run that does not start with an account type is
// reported as ErrMalformedPage.
func (s Scraper) ExtractAccounts(html string) ([]Account, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}

	table := doc.Find(s.fields.AccountTable).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: could not find account listing %q", ErrMalformedPage, s.fields.AccountTable)
	}

	lines := htmlutil.Texts(table.Find(s.fields.AccountCells))
	accounts, err := s.AccountSchema().Decode(lines)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		if _, dup := seen[a.Number]; dup {
			return nil, fmt.Errorf("%w: account %s listed twice", ErrMalformedPage, a.Number)
		}
		seen[a.Number] = struct{}{}
	}
	return accounts, nil
}

// PositionHeaders is the exact header row of the positions table.
var PositionHeaders = []string{
	"Symbol",
	"Description",
	"Quote",
	"Day Change",
	"Quantity",
	"Market Value",
	"Cost/Share",
	"Cost Basis",
	"Gain or Loss",
}

func isPositionHeader(cells []string) bool {
	if len(cells) != len(PositionHeaders) {
		return false
	}
	for i, h := range PositionHeaders {
		if cells[i] != h {
			return false
		}
	}
	return true
}

func tableRows(table *goquery.Selection) *goquery.Selection {
	// the html parser always wraps rows in a tbody, this skips rows of
	// nested tables
	return table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr")
}

// ExtractPositions parses the positions table, identified by its header row.
// Rows with an empty description are spacers and are skipped.
func (s Scraper) ExtractPositions(html string) ([]Position, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPage, err)
	}

	var body []*goquery.Selection
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := tableRows(table)
		for i := range rows.Nodes {
			row := rows.Eq(i)
			if !found {
				found = isPositionHeader(htmlutil.Texts(row.ChildrenFiltered("th, td")))
				continue
			}
			body = append(body, row)
		}
		return !found
	})
	if !found {
		return nil, fmt.Errorf("%w: could not find positions table header", ErrMalformedPage)
	}

	var positions []Position
	for i, row := range body {
		cells := htmlutil.Texts(row.ChildrenFiltered("th, td"))
		if len(cells) < 2 || cells[1] == "" {
			continue
		}
		if len(cells) < len(PositionHeaders) {
			return nil, fmt.Errorf(
				"%w: positions row %d has %d cells, expected %d",
				ErrMalformedPage, i, len(cells), len(PositionHeaders),
			)
		}
		p, err := decodePosition(cells)
		if err != nil {
			return nil, fmt.Errorf("%w: positions row %d: %w", ErrMalformedPage, i, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func decodePosition(cells []string) (Position, error) {
	p := Position{Description: cells[1]}
	if symbol := strings.Fields(cells[0]); len(symbol) > 0 {
		p.Symbol = symbol[0]
	}

	amounts := []struct {
		text string
		out  *decimal.Decimal
	}{
		{text: cells[2], out: &p.Quote},
		{text: cells[4], out: &p.Quantity},
		{text: cells[5], out: &p.Value},
		{text: cells[6], out: &p.CostPerShare},
		{text: cells[7], out: &p.CostBasis},
	}
	for _, a := range amounts {
		d, err := parseAmount(a.text)
		if err != nil {
			return Position{}, err
		}
		*a.out = d
	}

	var err error
	p.DayChange, p.DayChangePct, err = parseChange(cells[3])
	if err != nil {
		return Position{}, err
	}
	p.Change, p.ChangePct, err = parseChange(cells[8])
	if err != nil {
		return Position{}, err
	}
	return p, nil
}

func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`))
}

// ExtractVerificationMarkers reports whether the challenge page shows the
// expected secret image file name and phrase. It never fails, a blank
// expectation simply does not match.
func (s Scraper) ExtractVerificationMarkers(html, expectedImage, expectedPhrase string) bool {
	if strings.TrimSpace(expectedImage) == "" || strings.TrimSpace(expectedPhrase) == "" {
		return false
	}

	unescaped := stdhtml.UnescapeString(html)
	image := strings.ToLower(expectedImage)
	if !strings.Contains(strings.ToLower(html), image) &&
		!strings.Contains(strings.ToLower(unescaped), image) {
		return false
	}

	phrase := phrasePattern(expectedPhrase)
	return phrase.MatchString(html) || phrase.MatchString(unescaped)
}

// ExtractSingleValue returns the first capture group of pattern in the document.
func (s Scraper) ExtractSingleValue(html string, pattern *regexp.Regexp) (string, bool) {
	if pattern == nil {
		return "", false
	}
	groups := pattern.FindStringSubmatch(html)
	if len(groups) < 2 {
		return "", false
	}
	return strings.TrimSpace(groups[1]), true
}

// ContainsFailure reports whether the site embedded its failure text in the page.
func (s Scraper) ContainsFailure(html string) bool {
	return s.fields.FailureMarker != nil && s.fields.FailureMarker.MatchString(html)
}

// LoggedIn reports whether the page is one only shown to a signed in user.
func (s Scraper) LoggedIn(html string) bool {
	doc, err := parseDocument(html)
	if err != nil {
		return false
	}
	return doc.Find(s.fields.LoggedIn).Length() > 0
}
