package brokerage

import (
	"os"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func readTestdata(t testing.TB, name string) string {
	content, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return string(content)
}

func requireDecimal(t testing.TB, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual, msgAndArgs)
}

func TestExtractTokens(t *testing.T) {
	s := NewScraper(Classic.Fields)
	page := readTestdata(t, "summary.html")

	tokens := s.ExtractTokens(page)
	require.Equal(t, map[string]string{
		"__VIEWSTATE":                            "dDwtMTA4MTE0MjA5NDs7Pg==",
		"__EVENTVALIDATION":                      "/wEWAgLr8pKvBQL",
		"3f2504e04f8911d39a0c0305e82c3301":       "e7c1",
		"{6F9619FF-8B86-D011-B42D-00C04FC964FF}": "",
	}, tokens)

	require.Equal(t, tokens, s.ExtractTokens(page), "extraction must be idempotent")
	require.Empty(t, s.ExtractTokens("<html><body><p>no form</p></body></html>"))
	require.Empty(t, s.ExtractTokens(""))
}

func TestExtractDeltaTokens(t *testing.T) {
	s := NewScraper(Classic.Fields)
	delta := "1|#||4|1203|updatePanel|ctl00_Main_up|<div>ok</div>|" +
		"0|hiddenField|__EVENTTARGET||" +
		"28|hiddenField|__VIEWSTATE|L3dFUERIN2xoWWJpNmRhcQ==|" +
		"16|hiddenField|__EVENTVALIDATION|/wEWAwKM54rGBg|"

	require.Equal(t, map[string]string{
		"__VIEWSTATE":       "L3dFUERIN2xoWWJpNmRhcQ==",
		"__EVENTVALIDATION": "/wEWAwKM54rGBg",
	}, s.ExtractTokens(delta))
}

func TestExtractAccounts(t *testing.T) {
	s := NewScraper(Classic.Fields)
	page := readTestdata(t, "summary.html")

	accounts, err := s.ExtractAccounts(page)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	require.Equal(t, "12345678", accounts[0].Number)
	require.Equal(t, AccountInvestment, accounts[0].Type)
	require.Equal(t, "Joint Investing", accounts[0].Nickname)
	require.True(t, accounts[0].HasAvailable)
	requireDecimal(t, "1250.00", accounts[0].AvailableBalance)
	requireDecimal(t, "10432.17", accounts[0].Balance)

	require.Equal(t, "87654321", accounts[1].Number)
	require.Equal(t, AccountSavings, accounts[1].Type)
	require.False(t, accounts[1].HasAvailable)
	requireDecimal(t, "5000.00", accounts[1].Balance)

	require.Equal(t, "555-0001", accounts[2].Number)
	require.Equal(t, AccountRetirement, accounts[2].Type)
	require.False(t, accounts[2].HasAvailable, "only investment accounts carry an available balance")
	requireDecimal(t, "21000.50", accounts[2].Balance)

	again, err := s.ExtractAccounts(page)
	require.NoError(t, err)
	require.Equal(t, accounts, again)
}

func TestExtractAccountsMalformed(t *testing.T) {
	s := NewScraper(Classic.Fields)

	testCases := []struct {
		name string
		page string
	}{
		{
			name: "missing listing",
			page: `<html><body><p>Welcome</p></body></html>`,
		},
		{
			name: "truncated run",
			page: `<table id="accountSummary"><tr class="account">
				<td>Brokerage</td><td>Joint</td><td>12345678</td>
			</tr></table>`,
		},
		{
			name: "run does not start with a type",
			page: `<table id="accountSummary"><tr class="account">
				<td>Joint</td><td>Brokerage</td><td>12345678</td><td>--</td><td>$1.00</td>
			</tr></table>`,
		},
		{
			name: "duplicate account",
			page: `<table id="accountSummary">
				<tr class="account"><td>Savings</td><td>A</td><td>1111</td><td></td><td>$1.00</td></tr>
				<tr class="account"><td>Savings</td><td>B</td><td>1111</td><td></td><td>$2.00</td></tr>
			</table>`,
		},
		{
			name: "bad balance",
			page: `<table id="accountSummary"><tr class="account">
				<td>Savings</td><td>A</td><td>1111</td><td></td><td>lots</td>
			</tr></table>`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := s.ExtractAccounts(testCase.page)
			require.ErrorIs(t, err, ErrMalformedPage)
		})
	}
}

func TestExtractAccountsEmpty(t *testing.T) {
	s := NewScraper(Classic.Fields)
	accounts, err := s.ExtractAccounts(`<table id="accountSummary"><tr><th>Type</th></tr></table>`)
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestExtractPositions(t *testing.T) {
	s := NewScraper(Classic.Fields)
	page := readTestdata(t, "positions.html")

	positions, err := s.ExtractPositions(page)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	perl := positions[0]
	require.Equal(t, "PERL", perl.Symbol)
	require.Equal(t, "Pearl Industries Inc", perl.Description)
	requireDecimal(t, "3.1416", perl.Quantity)
	requireDecimal(t, "86.53", perl.Quote)
	requireDecimal(t, "271.84", perl.Value)
	requireDecimal(t, "73.12", perl.CostPerShare)
	requireDecimal(t, "229.72", perl.CostBasis)
	requireDecimal(t, "12.00", perl.DayChange)
	requireDecimal(t, "16.1", perl.DayChangePct)
	requireDecimal(t, "42.12", perl.Change)
	requireDecimal(t, "18.3", perl.ChangePct)

	msft := positions[1]
	require.Equal(t, "MSFT", msft.Symbol)
	requireDecimal(t, "2", msft.Quantity)
	requireDecimal(t, "-3.10", msft.DayChange)
	requireDecimal(t, "-0.8", msft.DayChangePct)
	requireDecimal(t, "-24.00", msft.Change)
	requireDecimal(t, "-2.9", msft.ChangePct)
}

func TestExtractPositionsMalformed(t *testing.T) {
	s := NewScraper(Classic.Fields)

	_, err := s.ExtractPositions(`<table><tr><th>Symbol</th><th>Description</th></tr></table>`)
	require.ErrorIs(t, err, ErrMalformedPage)

	header := "<tr>"
	for _, h := range PositionHeaders {
		header += "<th>" + h + "</th>"
	}
	header += "</tr>"

	_, err = s.ExtractPositions(`<table>` + header + `<tr><td>PERL</td><td>Pearl</td><td>$1.00</td></tr></table>`)
	require.ErrorIs(t, err, ErrMalformedPage)

	positions, err := s.ExtractPositions(`<table>` + header + `</table>`)
	require.NoError(t, err)
	require.Empty(t, positions)
}

func TestExtractVerificationMarkers(t *testing.T) {
	s := NewScraper(Classic.Fields)
	page := `<div class="challenge">
		<img src="/images/secret/Lighthouse_04.JPG" alt="Your secret image" />
		<p>Your secret phrase is: <b>Blue   heron
		at dawn</b></p>
	</div>`

	testCases := []struct {
		name   string
		image  string
		phrase string
		ok     bool
	}{
		{name: "both match", image: "lighthouse_04.jpg", phrase: "blue heron at dawn", ok: true},
		{name: "wrong image", image: "sailboat_01.jpg", phrase: "blue heron at dawn"},
		{name: "wrong phrase", image: "lighthouse_04.jpg", phrase: "red fox at dusk"},
		{name: "blank image", image: "", phrase: "blue heron at dawn"},
		{name: "blank phrase", image: "lighthouse_04.jpg", phrase: "  "},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.ok, s.ExtractVerificationMarkers(page, testCase.image, testCase.phrase))
		})
	}

	escaped := `<img src="/images/secret/cat.gif"><p>Tom &amp; Jerry&#39;s</p>`
	require.True(t, s.ExtractVerificationMarkers(escaped, "cat.gif", "Tom & Jerry's"))
}

func TestExtractSingleValue(t *testing.T) {
	s := NewScraper(Modern.Fields)

	key, ok := s.ExtractSingleValue(`<div data-download-key="k-42"></div>`, Modern.ContinuationPattern)
	require.True(t, ok)
	require.Equal(t, "k-42", key)

	_, ok = s.ExtractSingleValue(`<div></div>`, Modern.ContinuationPattern)
	require.False(t, ok)

	_, ok = s.ExtractSingleValue(`<div></div>`, nil)
	require.False(t, ok)

	confirmation, ok := s.ExtractSingleValue(
		`<p>Your transfer was scheduled. Confirmation Number: <strong>TR-20240115-0042</strong></p>`,
		Classic.ConfirmationPattern,
	)
	require.True(t, ok)
	require.Equal(t, "TR-20240115-0042", confirmation)

	_, ok = s.ExtractSingleValue(`<p>(a|b`, regexp.MustCompile(`nothing`))
	require.False(t, ok)
}

func TestContainsFailure(t *testing.T) {
	s := NewScraper(Classic.Fields)
	require.True(t, s.ContainsFailure(`<p class="error">We&#39;re sorry, your request could not be completed.</p>`))
	require.True(t, s.ContainsFailure(`<p>We're sorry</p>`))
	require.True(t, s.ContainsFailure(`<p>We are unable to process your request at this time.</p>`))
	require.False(t, s.ContainsFailure(`<p>Transfer scheduled.</p>`))
}

func TestLoggedIn(t *testing.T) {
	s := NewScraper(Classic.Fields)
	require.True(t, s.LoggedIn(readTestdata(t, "summary.html")))
	require.False(t, s.LoggedIn(`<html><body><form id="login"></form></body></html>`))
}
