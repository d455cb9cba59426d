// Package stub is a development backend speaking the Ferret search protocol.
// It serves canned results from a fixture and does no ranking.
package stub

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goferret/internal/search"
)

// PageSize is the number of results per page.
const PageSize = 10

// stripSuffix is removed from keywords before matching.
const stripSuffix = "+extension:md"

//go:embed default.yaml
var defaultFixture []byte

// Entry is one canned result.
type Entry struct {
	Link        string `yaml:"link" json:"link"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Date        string `yaml:"date" json:"date"`
}

// ProviderFixture describes one provider and everything it can return.
type ProviderFixture struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	// Latency delays every search by this much.
	Latency time.Duration `yaml:"latency" json:"latency"`
	// Fail, when non-zero, makes every search answer with this status.
	Fail    int     `yaml:"fail" json:"fail"`
	Results []Entry `yaml:"results" json:"results"`
}

// Fixture is the full data set of a stub server.
type Fixture struct {
	Providers []ProviderFixture `yaml:"providers" json:"providers"`
}

// Default returns the built-in fixture.
func Default() *Fixture {
	f, err := ParseFixture(defaultFixture)
	if err != nil {
		panic(fmt.Sprintf("stub: built-in fixture: %v", err))
	}
	return f
}

// LoadFixture reads a YAML or JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(b)
}

// ParseFixture decodes a fixture. JSON input is accepted as YAML.
func ParseFixture(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	seen := make(map[string]bool, len(f.Providers))
	for _, p := range f.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return nil, errors.New("parse fixture: provider without name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("parse fixture: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}
	return &f, nil
}

// Server answers /providers and /search from a fixture.
type Server struct {
	fixture *Fixture
	mux     *http.ServeMux
}

// New returns an http.Handler serving f. A nil f serves the built-in fixture.
func New(f *Fixture) *Server {
	if f == nil {
		f = Default()
	}
	s := &Server{fixture: f, mux: http.NewServeMux()}
	s.mux.HandleFunc("/providers", s.handleProviders)
	s.mux.HandleFunc("/search", s.handleSearch)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	log.Debug().Str("path", r.URL.Path).Str("query", r.URL.RawQuery).Dur("elapsed", time.Since(start)).Msg("request")
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := make([]search.Provider, 0, len(s.fixture.Providers))
	for _, p := range s.fixture.Providers {
		out = append(out, search.Provider{Name: p.Name, Title: p.Title})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	name := q.Get("provider")
	p, ok := s.provider(name)
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown provider: %q", name))
		return
	}
	keyword := strings.TrimSuffix(q.Get("keyword"), stripSuffix)
	if strings.TrimSpace(keyword) == "" {
		writeError(w, r, http.StatusBadRequest, "missing keyword")
		return
	}
	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid page")
			return
		}
		if n > 1 {
			page = n
		}
	}
	timeout := search.DefaultTimeout
	if raw := q.Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalid timeout")
			return
		}
		timeout = d
	}

	if p.Latency > 0 {
		if p.Latency > timeout {
			select {
			case <-time.After(timeout):
			case <-r.Context().Done():
				return
			}
			writeError(w, r, http.StatusGatewayTimeout, "search timed out")
			return
		}
		select {
		case <-time.After(p.Latency):
		case <-r.Context().Done():
			return
		}
	}
	if p.Fail != 0 {
		writeError(w, r, p.Fail, http.StatusText(p.Fail))
		return
	}
	writeJSON(w, r, http.StatusOK, paginate(match(p.Results, keyword), page))
}

func (s *Server) provider(name string) (ProviderFixture, bool) {
	for _, p := range s.fixture.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderFixture{}, false
}

// match keeps entries whose link, title or description contains keyword,
// ignoring case.
func match(entries []Entry, keyword string) []search.Result {
	kw := strings.ToLower(keyword)
	out := []search.Result{}
	for _, e := range entries {
		hay := strings.ToLower(e.Link + "\n" + e.Title + "\n" + e.Description)
		if !strings.Contains(hay, kw) {
			continue
		}
		date := e.Date
		if date == "" {
			date = search.NoDate
		}
		out = append(out, search.Result{Link: e.Link, Title: e.Title, Description: e.Description, Date: date})
	}
	return out
}

func paginate(results []search.Result, page int) []search.Result {
	lo := (page - 1) * PageSize
	if lo >= len(results) {
		return []search.Result{}
	}
	hi := lo + PageSize
	if hi > len(results) {
		hi = len(results)
	}
	return results[lo:hi]
}

var callbackRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	log.Warn().Int("status", status).Str("path", r.URL.Path).Msg(msg)
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeJSON encodes v, wrapped in the request's JSONP callback when it has a
// valid one.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cb := r.URL.Query().Get("callback")
	if cb != "" && callbackRE.MatchString(cb) {
		var buf bytes.Buffer
		buf.WriteString("/**/")
		buf.WriteString(cb)
		buf.WriteByte('(')
		buf.Write(b)
		buf.WriteString(");")
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
