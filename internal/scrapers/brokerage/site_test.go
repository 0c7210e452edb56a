package brokerage

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
)

// fakeSite imitates the classic site: it rotates the view state and event
// validation on every page it renders and rejects any post carrying stale
// or missing ones.
type fakeSite struct {
	t testing.TB

	username     string
	password     string
	secretImage  string
	secretPhrase string
	// omitTokens renders the login page without hidden fields.
	omitTokens bool
	// failStage makes the named transfer stage show the failure text.
	failStage string

	lock            sync.Mutex
	issued          int
	viewState       string
	eventValidation string
	loggedIn        bool
	posts           map[string]int
	forms           map[string]url.Values
}

func newFakeSite(t testing.TB) *fakeSite {
	return &fakeSite{
		t:            t,
		username:     "100200300",
		password:     "4321",
		secretImage:  "Lighthouse_04.jpg",
		secretPhrase: "Blue heron at dawn",
		posts:        map[string]int{},
		forms:        map[string]url.Values{},
	}
}

func (s *fakeSite) postCount(name string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.posts[name]
}

// form returns the last form posted to the named endpoint.
func (s *fakeSite) form(name string) url.Values {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.forms[name]
}

func (s *fakeSite) render(w http.ResponseWriter, body string) {
	s.issued++
	s.viewState = fmt.Sprintf("vs-%d", s.issued)
	s.eventValidation = fmt.Sprintf("ev-%d", s.issued)

	w.Header().Set("content-type", "text/html; charset=utf-8")
	fmt.Fprintf(
		w,
		`<html><body><form method="post">
<input type="hidden" name="__VIEWSTATE" value="%s" />
<input type="hidden" name="__EVENTVALIDATION" value="%s" />
%s
</form></body></html>`,
		s.viewState, s.eventValidation, body,
	)
}

const (
	fakeAccounts = `<a id="signOut" href="logout.aspx">Sign Out</a>
<table id="accountSummary">
<tr class="account"><td>Brokerage</td><td>Joint Investing</td><td>12345678</td><td>$1,250.00</td><td>$10,432.17</td></tr>
<tr class="account"><td>Savings</td><td>Rainy Day</td><td>87654321</td><td>--</td><td>$5,000.00</td></tr>
</table>`
	fakeFailure = `<p class="error">We're sorry, we are unable to process your request at this time.</p>`
)

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if r.Method == http.MethodPost {
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.viewState == "" ||
			r.PostForm.Get("__VIEWSTATE") != s.viewState ||
			r.PostForm.Get("__EVENTVALIDATION") != s.eventValidation {
			s.t.Logf("rejected stale state on %s", r.URL.Path)
			http.Error(w, "Validation of viewstate MAC failed.", http.StatusInternalServerError)
			return
		}
	}

	switch r.URL.Path {
	case "/myaccount/login.aspx":
		s.serveLogin(w, r)
	case "/myaccount/summary.aspx":
		if !s.loggedIn {
			s.render(w, `<p>Please sign in.</p>`)
			return
		}
		s.render(w, fakeAccounts)
	case "/myaccount/positions.aspx":
		if r.Method == http.MethodPost {
			s.posts["positions"]++
			s.forms["positions"] = r.PostForm
			content, err := os.ReadFile("testdata/positions.html")
			if err != nil {
				s.t.Error(err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			// the page carries its own hidden fields
			s.viewState = "cG9zaXRpb25z"
			s.eventValidation = "/wEWBQ"
			w.Write(content)
			return
		}
		s.render(w, `<select name="ctl00$Main$ddlAccount"></select>`)
	case "/myaccount/download.aspx":
		if r.Method == http.MethodPost {
			s.posts["export"]++
			s.forms["export"] = r.PostForm
			content, err := os.ReadFile("../../ofx/testdata/statement.ofx")
			if err != nil {
				s.t.Error(err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("content-type", "application/x-ofx")
			w.Write(content)
			return
		}
		s.render(w, `<input type="text" name="ctl00$Main$txtStart" />`)
	case "/myaccount/transfer.aspx":
		s.serveTransfer(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeSite) serveLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if s.omitTokens {
			fmt.Fprint(w, `<html><body><form><input name="ctl00$Main$txtCustomerNumber" /></form></body></html>`)
			return
		}
		s.render(w, `<input name="ctl00$Main$txtCustomerNumber" />`)
		return
	}

	switch {
	case r.PostForm.Has("ctl00$Main$txtCustomerNumber"):
		s.posts["username"]++
		if r.PostForm.Get("ctl00$Main$txtCustomerNumber") != s.username {
			s.render(w, fakeFailure)
			return
		}
		s.render(w, `<a id="ctl00_Main_lnkShowChallenge" href="javascript:__doPostBack('ctl00$Main$lnkShowChallenge','')">Continue</a>`)
	case r.PostForm.Get("__EVENTTARGET") == "ctl00$Main$lnkShowChallenge":
		s.posts["advance"]++
		s.render(w, fmt.Sprintf(
			`<img src="/images/secret/%s" alt="Your secret image" />
<p>Your secret phrase: <b>%s</b></p>
<input type="password" name="ctl00$Main$txtPIN" />`,
			html.EscapeString(s.secretImage),
			html.EscapeString(s.secretPhrase),
		))
	case r.PostForm.Has("ctl00$Main$txtPIN"):
		s.posts["password"]++
		if r.PostForm.Get("ctl00$Main$txtPIN") != s.password {
			s.render(w, fakeFailure)
			return
		}
		s.loggedIn = true
		s.render(w, `<p>Signing you in...</p>`)
	default:
		http.Error(w, "unexpected post", http.StatusBadRequest)
	}
}

func (s *fakeSite) serveTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, `<select name="ctl00$Main$ddlFrom"></select>`)
		return
	}

	var stage string
	switch {
	case r.PostForm.Has("ctl00$Main$btnContinue"):
		stage = "setup"
		s.forms["transfer"] = r.PostForm
	case r.PostForm.Has("ctl00$Main$btnVerify"):
		stage = "validate"
	case r.PostForm.Has("ctl00$Main$btnSubmit"):
		stage = "confirm"
	default:
		http.Error(w, "unexpected post", http.StatusBadRequest)
		return
	}
	s.posts["transfer-"+stage]++

	if stage == s.failStage {
		s.render(w, fakeFailure)
		return
	}
	switch stage {
	case "setup":
		s.render(w, `<p>Review your transfer.</p>`)
	case "validate":
		s.render(w, `<p>Please confirm.</p>`)
	case "confirm":
		s.render(w, `<p>Your transfer was scheduled. Confirmation Number: <strong>TR-20240115-0042</strong></p>`)
	}
}
