package app

import "github.com/hyperifyio/goferret/internal/search"

// UI is everything the app does to the screen. Implementations are called
// from the app loop only, one call at a time.
type UI interface {
	// Critical replaces the alerts area with a terminal error.
	Critical(msg string)
	Warning(msg string)
	// Compact moves the logo and search box into the navbar. Idempotent.
	Compact()
	ClearResults()
	AppendResults(p search.Provider, results []search.Result)
	AppendFailure(p search.Provider, info search.ErrorInfo)
	Focus()
}

// KeywordAware is implemented by UIs that want to know which keyword the
// current results belong to.
type KeywordAware interface {
	SetKeyword(keyword string)
}

// Fanout forwards every call to each UI in order.
type Fanout []UI

func (f Fanout) Critical(msg string) {
	for _, u := range f {
		u.Critical(msg)
	}
}

func (f Fanout) Warning(msg string) {
	for _, u := range f {
		u.Warning(msg)
	}
}

func (f Fanout) Compact() {
	for _, u := range f {
		u.Compact()
	}
}

func (f Fanout) ClearResults() {
	for _, u := range f {
		u.ClearResults()
	}
}

func (f Fanout) AppendResults(p search.Provider, results []search.Result) {
	for _, u := range f {
		u.AppendResults(p, results)
	}
}

func (f Fanout) AppendFailure(p search.Provider, info search.ErrorInfo) {
	for _, u := range f {
		u.AppendFailure(p, info)
	}
}

func (f Fanout) Focus() {
	for _, u := range f {
		u.Focus()
	}
}

func (f Fanout) SetKeyword(keyword string) {
	for _, u := range f {
		if k, ok := u.(KeywordAware); ok {
			k.SetKeyword(keyword)
		}
	}
}
