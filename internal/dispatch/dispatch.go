// Package dispatch fans each keyword out to every provider and keeps one
// latest-wins lane per provider: only the newest request's outcome counts.
package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goferret/internal/search"
)

// Searcher runs one query; *search.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
}

// GitHubSuffix restricts GitHub code search to Markdown files.
const GitHubSuffix = "+extension:md"

// Rewrite returns the keyword as it is sent to the named provider.
func Rewrite(provider, keyword string) string {
	if provider == "github" {
		return keyword + GitHubSuffix
	}
	return keyword
}

// Outcome is the completion of one request.
type Outcome struct {
	Provider search.Provider
	Seq      uint64
	// Keyword is the user's keyword before Rewrite.
	Keyword string
	Results []search.Result
	Err     error
}

// Dispatcher owns the lanes. Issue starts requests; completed requests are
// delivered on Outcomes in completion order, stale ones included. Callers use
// Current to decide whether an outcome still counts.
type Dispatcher struct {
	searcher  Searcher
	providers []search.Provider
	page      int

	mu       sync.Mutex
	latest   map[string]uint64
	inFlight int

	out chan Outcome
}

// New builds a dispatcher for a fixed provider list.
func New(s Searcher, providers []search.Provider) *Dispatcher {
	ps := make([]search.Provider, len(providers))
	copy(ps, providers)
	return &Dispatcher{
		searcher:  s,
		providers: ps,
		latest:    make(map[string]uint64, len(ps)),
		out:       make(chan Outcome, len(ps)),
	}
}

// WithPage makes every subsequent request ask for the given result page.
func (d *Dispatcher) WithPage(page int) *Dispatcher {
	d.page = page
	return d
}

// Providers returns the lanes' providers in dispatch order.
func (d *Dispatcher) Providers() []search.Provider {
	ps := make([]search.Provider, len(d.providers))
	copy(ps, d.providers)
	return ps
}

// Outcomes delivers every finished request.
func (d *Dispatcher) Outcomes() <-chan Outcome { return d.out }

// Issue starts one request per provider for keyword. Requests run until they
// finish on their own; superseding a request does not abort it. A request
// whose ctx ends before it can report is dropped.
func (d *Dispatcher) Issue(ctx context.Context, keyword string) {
	for _, p := range d.providers {
		d.mu.Lock()
		d.latest[p.Name]++
		seq := d.latest[p.Name]
		d.inFlight++
		d.mu.Unlock()

		q := search.Query{Provider: p.Name, Keyword: Rewrite(p.Name, keyword), Page: d.page}
		log.Debug().Str("provider", p.Name).Str("keyword", q.Keyword).Uint64("seq", seq).Msg("search issued")
		go d.run(ctx, p, seq, keyword, q)
	}
}

func (d *Dispatcher) run(ctx context.Context, p search.Provider, seq uint64, keyword string, q search.Query) {
	results, err := d.searcher.Search(ctx, q)
	o := Outcome{Provider: p, Seq: seq, Keyword: keyword, Results: results, Err: err}
	select {
	case d.out <- o:
	case <-ctx.Done():
		d.done()
	}
}

// Current reports whether o belongs to the newest request of its lane.
func (d *Dispatcher) Current(o Outcome) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest[o.Provider.Name] == o.Seq
}

// Ack marks an outcome received from Outcomes as handled.
func (d *Dispatcher) Ack(Outcome) { d.done() }

func (d *Dispatcher) done() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
}

// Idle reports whether no request is outstanding or unacknowledged.
func (d *Dispatcher) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight == 0
}
