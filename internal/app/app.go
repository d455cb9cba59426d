package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goferret/internal/cache"
	"github.com/hyperifyio/goferret/internal/dispatch"
	"github.com/hyperifyio/goferret/internal/fetch"
	"github.com/hyperifyio/goferret/internal/input"
	"github.com/hyperifyio/goferret/internal/search"
)

// ErrBootstrap is returned when the provider list could not be fetched.
var ErrBootstrap = errors.New("could not get providers")

// ErrNoProviders is returned when the backend offers nothing to search.
var ErrNoProviders = errors.New("no providers")

const noProvidersMessage = "There are no available providers to search"

// Backend is the remote side: provider discovery plus per-provider search.
type Backend interface {
	Providers(ctx context.Context) ([]search.Provider, error)
	dispatch.Searcher
}

// App is the search front end: it bootstraps the provider list, turns input
// events into searches and renders outcomes through its UI.
type App struct {
	cfg     Config
	ui      UI
	backend Backend
	// afterRender runs on the loop goroutine after each batch of UI updates.
	afterRender func()
}

// Option customizes an App.
type Option func(*App)

// WithBackend replaces the HTTP backend built from Config.
func WithBackend(b Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithAfterRender registers fn to run after the UI changed.
func WithAfterRender(fn func()) Option {
	return func(a *App) { a.afterRender = fn }
}

// New prepares the cache and the backend client described by cfg.
func New(cfg Config, ui UI, opts ...Option) (*App, error) {
	if ui == nil {
		return nil, errors.New("app: nil UI")
	}
	a := &App{cfg: cfg, ui: ui}
	for _, o := range opts {
		o(a)
	}
	if a.backend == nil {
		b, err := newHTTPBackend(cfg)
		if err != nil {
			return nil, err
		}
		a.backend = b
	}
	return a, nil
}

func newHTTPBackend(cfg Config) (*search.Client, error) {
	fc := &fetch.Client{
		HTTPClient:    fetch.NewTransportClient(),
		UserAgent:     cfg.UserAgent,
		CacheOnly:     cfg.CacheOnly,
		MaxConcurrent: cfg.MaxConcurrent,
	}
	if fc.UserAgent == "" {
		fc.UserAgent = UserAgent()
	}
	if dir := strings.TrimSpace(cfg.CacheDir); dir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(dir); err != nil {
				return nil, fmt.Errorf("clear cache: %w", err)
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(dir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged expired cache entries")
			}
		}
		fc.Cache = &cache.HTTPCache{Dir: dir, StrictPerms: cfg.CacheStrictPerms}
	}
	return &search.Client{
		BaseURL:  ServerURL(cfg),
		HTTP:     fc,
		Format:   cfg.Format,
		Callback: cfg.Callback,
		Timeout:  cfg.SearchTimeout,
	}, nil
}

// ServerURL is the backend base URL cfg resolves to.
func ServerURL(cfg Config) string {
	if s := strings.TrimSpace(cfg.ServerURL); s != "" {
		return strings.TrimRight(s, "/")
	}
	return search.ResolveServerURL(cfg.PageURL)
}

// Run fetches the providers once and then serves searches for keywords
// merged from events. It returns when ctx ends, or once events is closed and
// every outstanding search has been rendered or discarded.
//
// A failed or empty provider fetch shows a critical message and returns
// without reading events.
func (a *App) Run(ctx context.Context, events <-chan input.Event) error {
	providers, err := a.backend.Providers(ctx)
	switch {
	case errors.Is(err, search.ErrNotArray) || (err == nil && len(providers) == 0):
		log.Error().Msg("backend returned no providers")
		a.ui.Critical(noProvidersMessage)
		a.rendered()
		return ErrNoProviders
	case err != nil:
		info := search.Normalize(err)
		log.Error().Err(err).Int("code", info.Code).Msg("provider fetch failed")
		a.ui.Critical(fmt.Sprintf("Could not get the available providers due to %s (%d)", info.Message, info.Code))
		a.rendered()
		return fmt.Errorf("%w: %v", ErrBootstrap, err)
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	log.Info().Int("count", len(providers)).Strs("providers", names).Msg("providers available")

	d := dispatch.New(a.backend, providers).WithPage(a.cfg.Page)
	keywords := input.Merge(ctx, events, input.Options{MinLength: a.cfg.MinKeywordLength, Window: a.cfg.KeyWindow})
	a.ui.Focus()
	a.rendered()
	return a.loop(ctx, d, keywords)
}

func (a *App) loop(ctx context.Context, d *dispatch.Dispatcher, keywords <-chan string) error {
	for {
		if keywords == nil && d.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case kw, ok := <-keywords:
			if !ok {
				keywords = nil
				continue
			}
			a.startCycle(ctx, d, kw)
		case o := <-d.Outcomes():
			a.handle(d, o)
		}
	}
}

// startCycle resets the results area once, then issues the keyword on every
// lane.
func (a *App) startCycle(ctx context.Context, d *dispatch.Dispatcher, kw string) {
	log.Info().Str("keyword", kw).Msg("search")
	a.ui.Compact()
	a.ui.ClearResults()
	if k, ok := a.ui.(KeywordAware); ok {
		k.SetKeyword(kw)
	}
	a.rendered()
	d.Issue(ctx, kw)
}

func (a *App) handle(d *dispatch.Dispatcher, o dispatch.Outcome) {
	defer d.Ack(o)
	if !d.Current(o) {
		log.Debug().Str("provider", o.Provider.Name).Str("keyword", o.Keyword).Uint64("seq", o.Seq).Msg("stale result dropped")
		return
	}
	switch {
	case o.Err == nil:
		a.ui.AppendResults(o.Provider, o.Results)
	case errors.Is(o.Err, search.ErrNotArray):
		log.Debug().Str("provider", o.Provider.Name).Msg("non-list result ignored")
		return
	default:
		info := search.Normalize(o.Err)
		log.Warn().Err(o.Err).Str("provider", o.Provider.Name).Int("code", info.Code).Msg("search failed")
		a.ui.AppendFailure(o.Provider, info)
	}
	a.rendered()
}

func (a *App) rendered() {
	if a.afterRender != nil {
		a.afterRender()
	}
}
