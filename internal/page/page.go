// Package page keeps the search page as an HTML document and applies UI
// updates to it, so the rendered state can be served or saved.
package page

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/goferret/internal/render"
	"github.com/hyperifyio/goferret/internal/search"
)

//go:embed index.html
var defaultTemplate string

// Element ids the document must provide.
const (
	SearchButton       = "searchButton"
	SearchInput        = "searchInput"
	SearchResults      = "searchResults"
	SearchAlerts       = "searchAlerts"
	LogoMain           = "logoMain"
	LogoNavbarHolder   = "logoNavbarHolder"
	SearchMain         = "searchMain"
	SearchNavbarHolder = "searchNavbarHolder"
)

var requiredIDs = []string{SearchButton, SearchInput, SearchResults, SearchAlerts, LogoMain, LogoNavbarHolder, SearchMain, SearchNavbarHolder}

// Document is a search page. It is safe for concurrent use.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// New parses the built-in page.
func New() *Document {
	d, err := Parse(strings.NewReader(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("page: built-in template: %v", err))
	}
	return d
}

// Parse loads a custom page. Every element id the UI touches must exist.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	var missing []string
	for _, id := range requiredIDs {
		if doc.Find("#"+id).Length() == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("page is missing elements: %s", strings.Join(missing, ", "))
	}
	return &Document{doc: doc}, nil
}

func (d *Document) byID(id string) *goquery.Selection {
	return d.doc.Find("#" + id).First()
}

// Critical replaces the alerts area with a single danger message.
func (d *Document) Critical(msg string) { d.alert("alert-danger", msg) }

// Warning replaces the alerts area with a single warning message.
func (d *Document) Warning(msg string) { d.alert("alert-warning", msg) }

func (d *Document) alert(class, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	alerts := d.byID(SearchAlerts)
	alerts.Empty()
	alerts.AppendHtml(`<div class="alert ` + class + ` search-alert" role="alert"></div>`)
	alerts.Children().Last().SetText(msg)
}

// Compact moves the logo and the search box into the navbar. Calling it
// again is harmless.
func (d *Document) Compact() {
	d.mu.Lock()
	defer d.mu.Unlock()
	moveInto(d.byID(LogoMain), d.byID(LogoNavbarHolder), "logo-navbar")
	moveInto(d.byID(SearchMain), d.byID(SearchNavbarHolder), "input-group-search-navbar")
}

func moveInto(el, holder *goquery.Selection, class string) {
	if !el.Parent().IsSelection(holder) {
		holder.AppendSelection(el.Remove())
	}
	el.AddClass(class)
}

// ClearResults empties the results area.
func (d *Document) ClearResults() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID(SearchResults).Empty()
}

// AppendResults adds one provider block: heading, one item per result and a
// separator.
func (d *Document) AppendResults(p search.Provider, results []search.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	box := d.byID(SearchResults)
	appendHeading(box, p.DisplayTitle())
	for _, r := range results {
		box.AppendHtml(`<li class="search-results-li">` + render.Item(r) + `</li>`)
	}
	box.AppendHtml(`<hr>`)
}

// AppendFailure adds a heading for the provider and a danger block with the
// error message.
func (d *Document) AppendFailure(p search.Provider, info search.ErrorInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	box := d.byID(SearchResults)
	appendHeading(box, p.DisplayTitle())
	box.AppendHtml(`<div class="alert alert-danger" role="alert"></div>`)
	box.Children().Last().SetText(info.Message)
}

func appendHeading(box *goquery.Selection, text string) {
	box.AppendHtml(`<h3></h3>`)
	box.Children().Last().SetText(text)
}

// Focus marks the search input as focused.
func (d *Document) Focus() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID(SearchInput).SetAttr("autofocus", "autofocus")
}

// SetInputValue stores what the user typed.
func (d *Document) SetInputValue(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID(SearchInput).SetAttr("value", v)
}

// InputValue is the current content of the search input.
func (d *Document) InputValue() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID(SearchInput).AttrOr("value", "")
}

// HTML serializes the whole page.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// WriteTo writes the serialized page to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	s, err := d.HTML()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, s)
	return int64(n), err
}

// Select runs fn against a snapshot query of the page. Intended for
// inspection; fn must not keep the selection.
func (d *Document) Select(selector string, fn func(*goquery.Selection)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc.Find(selector))
}
