// Package console renders search output to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/hyperifyio/goferret/internal/render"
	"github.com/hyperifyio/goferret/internal/search"
)

// UI writes human readable output to W. Colors follow color.NoColor unless
// Plain is set.
type UI struct {
	W     io.Writer
	Plain bool

	mu       sync.Mutex
	compact  bool
	critical *color.Color
	warning  *color.Color
	heading  *color.Color
	link     *color.Color
	faint    *color.Color
	failure  *color.Color
}

// New returns a terminal UI writing to w.
func New(w io.Writer, plain bool) *UI {
	u := &UI{W: w, Plain: plain}
	u.critical = u.style(color.FgRed, color.Bold)
	u.warning = u.style(color.FgYellow)
	u.heading = u.style(color.FgCyan, color.Bold)
	u.link = u.style(color.FgBlue, color.Underline)
	u.faint = u.style(color.Faint)
	u.failure = u.style(color.FgRed)
	return u
}

func (u *UI) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if u.Plain {
		c.DisableColor()
	}
	return c
}

func (u *UI) Critical(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.critical.Fprintln(u.W, "error: "+msg)
}

func (u *UI) Warning(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.warning.Fprintln(u.W, "warning: "+msg)
}

// Compact has no terminal layout to change; it only records that a search
// has started so the banner is not printed again.
func (u *UI) Compact() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.compact = true
}

// ClearResults prints a separator line between search cycles.
func (u *UI) ClearResults() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.faint.Fprintln(u.W, strings.Repeat("─", 40))
}

func (u *UI) AppendResults(p search.Provider, results []search.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.heading.Fprintf(u.W, "%s (%d)\n", p.DisplayTitle(), len(results))
	for i, r := range results {
		fmt.Fprintf(u.W, "%2d. %s\n", i+1, oneLine(r.Title))
		u.link.Fprintf(u.W, "    %s\n", r.Link)
		if d := oneLine(r.Description); d != "" {
			fmt.Fprintf(u.W, "    %s\n", d)
		}
		if d, ok := render.Date(r.Date); ok {
			u.faint.Fprintf(u.W, "    %s\n", d)
		}
	}
	fmt.Fprintln(u.W)
}

func (u *UI) AppendFailure(p search.Provider, info search.ErrorInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.heading.Fprintln(u.W, p.DisplayTitle())
	u.failure.Fprintf(u.W, "    %s\n\n", info.Message)
}

// Focus prints the prompt banner once, before the first search.
func (u *UI) Focus() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.compact {
		return
	}
	u.faint.Fprintln(u.W, "type a keyword and press Enter; '!' searches the current keyword immediately")
}

// oneLine collapses whitespace so multi-line descriptions stay readable.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
