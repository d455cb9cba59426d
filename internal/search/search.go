// Package search talks to a Ferret backend: it lists the available providers
// and runs keyword searches against one provider at a time.
package search

import "strings"

// NoDate is the zero time as the backend serializes it. Results carrying it
// have no meaningful date.
const NoDate = "0001-01-01T00:00:00Z"

// Provider is a named search source offered by the backend.
type Provider struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// DisplayTitle returns the title, falling back to the name when the backend
// sent none.
func (p Provider) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return p.Name
}

// Result represents a single search hit from a provider.
type Result struct {
	Link        string `json:"Link"`
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	Date        string `json:"Date"`
}

// HasDate reports whether the result carries a real date.
func (r Result) HasDate() bool {
	return r.Date != NoDate
}

// Query is one search call against one provider.
type Query struct {
	Provider string
	Keyword  string
	// Page is 1-based; values below 2 are not sent.
	Page int
}
