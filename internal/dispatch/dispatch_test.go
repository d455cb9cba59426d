package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperifyio/goferret/internal/search"
)

// gatedSearcher blocks each call until the test releases it by keyword.
type gatedSearcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []search.Query
}

func newGated() *gatedSearcher {
	return &gatedSearcher{gates: map[string]chan struct{}{}}
}

func (g *gatedSearcher) gate(provider, keyword string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := provider + "|" + keyword
	ch, ok := g.gates[k]
	if !ok {
		ch = make(chan struct{})
		g.gates[k] = ch
	}
	return ch
}

func (g *gatedSearcher) Search(ctx context.Context, q search.Query) ([]search.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, q)
	g.mu.Unlock()
	select {
	case <-g.gate(q.Provider, q.Keyword):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if q.Keyword == "fail" {
		return nil, errors.New("boom")
	}
	return []search.Result{{Title: q.Provider + ":" + q.Keyword}}, nil
}

func (g *gatedSearcher) queries() []search.Query {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]search.Query(nil), g.calls...)
}

func recv(t *testing.T, d *Dispatcher) Outcome {
	t.Helper()
	select {
	case o := <-d.Outcomes():
		return o
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for outcome")
	}
	return Outcome{}
}

func TestRewrite(t *testing.T) {
	if got := Rewrite("github", "readme"); got != "readme+extension:md" {
		t.Fatalf("github rewrite: %q", got)
	}
	for _, p := range []string{"consul", "GitHub", "github2", ""} {
		if got := Rewrite(p, "readme"); got != "readme" {
			t.Fatalf("%q must not be rewritten, got %q", p, got)
		}
	}
}

func TestIssue_QueriesEveryProviderWithRewrite(t *testing.T) {
	g := newGated()
	d := New(g, []search.Provider{{Name: "github"}, {Name: "consul"}})
	d.WithPage(2).Issue(context.Background(), "docs")
	close(g.gate("github", "docs+extension:md"))
	close(g.gate("consul", "docs"))
	recv(t, d)
	recv(t, d)

	qs := g.queries()
	if len(qs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(qs))
	}
	seen := map[string]search.Query{}
	for _, q := range qs {
		seen[q.Provider] = q
	}
	if seen["github"].Keyword != "docs+extension:md" || seen["consul"].Keyword != "docs" {
		t.Fatalf("unexpected keywords: %+v", seen)
	}
	if seen["consul"].Page != 2 {
		t.Fatalf("page not forwarded: %+v", seen["consul"])
	}
}

func TestLane_StaleOutcomeIsNotCurrent(t *testing.T) {
	g := newGated()
	d := New(g, []search.Provider{{Name: "consul"}})
	ctx := context.Background()

	d.Issue(ctx, "k1")
	d.Issue(ctx, "k2")

	// k2 answers first, k1 afterwards
	close(g.gate("consul", "k2"))
	o2 := recv(t, d)
	close(g.gate("consul", "k1"))
	o1 := recv(t, d)

	if o2.Keyword != "k2" || !d.Current(o2) {
		t.Fatalf("latest outcome should be current: %+v", o2)
	}
	if o1.Keyword != "k1" || d.Current(o1) {
		t.Fatalf("stale outcome reported current: %+v", o1)
	}
	d.Ack(o1)
	d.Ack(o2)
	if !d.Idle() {
		t.Fatalf("dispatcher should be idle after acking both")
	}
}

func TestLane_IndependentProviders(t *testing.T) {
	g := newGated()
	d := New(g, []search.Provider{{Name: "a"}, {Name: "b"}})
	ctx := context.Background()

	d.Issue(ctx, "k1")
	// only b gets a second request's worth of staleness; a stays on k1
	close(g.gate("a", "k1"))
	oa := recv(t, d)
	if !d.Current(oa) {
		t.Fatalf("a/k1 should be current")
	}
	d.Ack(oa)

	d.Issue(ctx, "k2")
	close(g.gate("b", "k1"))
	ob1 := recv(t, d)
	if d.Current(ob1) {
		t.Fatalf("b/k1 must be stale after k2 was issued")
	}
	d.Ack(ob1)
	if d.Idle() {
		t.Fatalf("k2 requests still outstanding")
	}
}

func TestOutcome_CarriesError(t *testing.T) {
	g := newGated()
	d := New(g, []search.Provider{{Name: "a"}})
	d.Issue(context.Background(), "fail")
	close(g.gate("a", "fail"))
	o := recv(t, d)
	if o.Err == nil || o.Results != nil {
		t.Fatalf("expected error outcome, got %+v", o)
	}
}

func TestIssue_CancelledContextReleasesLane(t *testing.T) {
	g := newGated()
	d := New(g, []search.Provider{{Name: "a"}})
	ctx, cancel := context.WithCancel(context.Background())
	d.Issue(ctx, "never")
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for !d.Idle() {
		select {
		case o := <-d.Outcomes():
			d.Ack(o)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("dispatcher never became idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_CopiesProviders(t *testing.T) {
	ps := []search.Provider{{Name: "a"}}
	d := New(newGated(), ps)
	ps[0].Name = "mutated"
	if got := d.Providers(); got[0].Name != "a" {
		t.Fatalf("dispatcher shares caller's slice: %+v", got)
	}
}
