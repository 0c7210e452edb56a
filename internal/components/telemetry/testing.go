package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Report is a single report captured by TestAPI.
type Report struct {
	Level  string
	Id     string
	Params []any
}

// TestAPI implements API by logging to a testing.TB and recording every report
// so tests can assert that a component reported (or did not report) breakage.
type TestAPI struct {
	t       testing.TB
	lock    *sync.Mutex
	reports *[]Report
}

func NewTestAPI(t testing.TB) TestAPI {
	return TestAPI{
		t:       t,
		lock:    &sync.Mutex{},
		reports: &[]Report{},
	}
}

func (a TestAPI) record(level, id string, params []any) {
	a.lock.Lock()
	defer a.lock.Unlock()
	*a.reports = append(*a.reports, Report{Level: level, Id: id, Params: params})
	a.t.Logf("[%s] %s %s", level, id, fmt.Sprint(params...))
}

func (a TestAPI) ReportBroken(id string, params ...any) {
	a.record("broken", id, params)
}

func (a TestAPI) ReportWarning(id string, params ...any) {
	a.record("warning", id, params)
}

func (a TestAPI) ReportDebug(msg string, params ...any) {
	a.record("debug", msg, params)
}

func (a TestAPI) ReportCount(id string, count int64) {
	a.record("count", id, []any{count})
}

// Reports returns a copy of every report of the given level ("broken", "warning", "debug", "count").
func (a TestAPI) Reports(level string) []Report {
	a.lock.Lock()
	defer a.lock.Unlock()
	var out []Report
	for _, r := range *a.reports {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// Broken reports whether a broken report was made with an id containing the given substring.
func (a TestAPI) Broken(idSubstring string) bool {
	for _, r := range a.Reports("broken") {
		if strings.Contains(r.Id, idSubstring) {
			return true
		}
	}
	return false
}
