package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperifyio/goferret/internal/fetch"
)

func TestClient_Providers_JSONP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/providers" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		cb := r.URL.Query().Get("callback")
		if cb != "cb_1" {
			t.Errorf("unexpected callback %q", cb)
		}
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprintf(w, `%s([{"name":"github","title":"GitHub"},{"name":""},{"name":"consul"}]);`, cb)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: &fetch.Client{HTTPClient: srv.Client()}, Callback: "cb_1"}
	got, err := c.Providers(context.Background())
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 named providers, got %d: %+v", len(got), got)
	}
	if got[0].Name != "github" || got[0].DisplayTitle() != "GitHub" {
		t.Fatalf("unexpected first provider: %+v", got[0])
	}
	if got[1].DisplayTitle() != "consul" {
		t.Fatalf("title should fall back to name, got %q", got[1].DisplayTitle())
	}
}

func TestClient_Providers_NotArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"providers":[]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: &fetch.Client{}, Format: FormatJSON}
	if _, err := c.Providers(context.Background()); !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected ErrNotArray, got %v", err)
	}
}

func TestClient_Search_SendsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if q.Get("provider") != "github" || q.Get("keyword") != "foo+extension:md" || q.Get("timeout") != "5000ms" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Has("page") {
			t.Errorf("page 1 must not be sent")
		}
		if q.Has("callback") {
			t.Errorf("json format must not send a callback")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Link":"https://x/1","Title":"One","Description":"d","Date":"2016-03-04T05:06:07Z"}]`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", HTTP: &fetch.Client{}, Format: FormatJSON}
	got, err := c.Search(context.Background(), Query{Provider: "github", Keyword: "foo+extension:md", Page: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "One" || got[0].Link != "https://x/1" || !got[0].HasDate() {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestClient_Search_PageAndNull(t *testing.T) {
	var page string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprintf(w, "/**/ %s(null)", r.URL.Query().Get("callback"))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: &fetch.Client{}, Timeout: 2 * time.Second}
	_, err := c.Search(context.Background(), Query{Provider: "consul", Keyword: "web", Page: 3})
	if !errors.Is(err, ErrNotArray) {
		t.Fatalf("expected ErrNotArray for null payload, got %v", err)
	}
	if page != "3" {
		t.Fatalf("page=%q, want 3", page)
	}
}

func TestClient_Search_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid provider"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: &fetch.Client{}}
	_, err := c.Search(context.Background(), Query{Provider: "nope", Keyword: "x"})
	info := Normalize(err)
	if info.Code != 400 || info.Message != "invalid provider" {
		t.Fatalf("unexpected normalized error: %+v", info)
	}
}

func TestResolveServerURL(t *testing.T) {
	cases := map[string]string{
		"":                                  DefaultServerURL,
		"file:///home/me/ferret/index.html": DefaultServerURL,
		"http://search.example:8080/ui/":    "http://search.example:8080",
		"https://search.example/index.html": "https://search.example",
		"::not a url":                       DefaultServerURL,
	}
	for in, want := range cases {
		if got := ResolveServerURL(in); got != want {
			t.Errorf("ResolveServerURL(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestFormatTimeout(t *testing.T) {
	if got := FormatTimeout(0); got != "5000ms" {
		t.Fatalf("default timeout %q", got)
	}
	if got := FormatTimeout(1500 * time.Millisecond); got != "1500ms" {
		t.Fatalf("custom timeout %q", got)
	}
}
