package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goferret/internal/cache"
)

// maxBodyBytes bounds how much of a backend response is read into memory.
const maxBodyBytes = 8 << 20

// Response is a successful backend reply.
type Response struct {
	Status      int
	StatusText  string
	ContentType string
	Body        []byte
	// FromCache is true when the body was served from the on-disk cache.
	FromCache bool
}

// StatusError is returned for non-2xx replies. Body holds whatever the
// backend sent so callers can decode an error payload from it.
type StatusError struct {
	URL        string
	Status     int
	StatusText string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.StatusText != "" {
		return fmt.Sprintf("unexpected status: %d %s", e.Status, e.StatusText)
	}
	return fmt.Sprintf("unexpected status: %d", e.Status)
}

// ErrCacheMiss is returned in cache-only mode when nothing is stored for a URL.
var ErrCacheMiss = errors.New("not in cache")

// Client wraps http.Client with a redirect policy, an optional on-disk cache
// and a per-instance concurrency gate. It never retries: a failed call is
// reported once and the user re-issues the search.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// CacheOnly serves exclusively from Cache and never touches the network.
	CacheOnly bool

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get issues a GET with context and user-agent, revalidating against the
// cache when one is configured.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if c.CacheOnly {
		return c.fromCache(ctx, rawURL)
	}
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	resp, err := c.tryOnce(ctx, rawURL, etag, lastMod)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotModified && c.Cache != nil {
		cached, err := c.fromCache(ctx, rawURL)
		if err == nil {
			return cached, nil
		}
		log.Debug().Err(err).Str("url", rawURL).Msg("304 without cached body")
		return nil, &StatusError{URL: rawURL, Status: resp.Status, StatusText: resp.StatusText}
	}
	if c.Cache != nil && resp.Status == http.StatusOK {
		if err := c.Cache.Save(ctx, rawURL, resp.ContentType, resp.etag, resp.lastModified, resp.Body); err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("cache save failed")
		}
	}
	return &resp.Response, nil
}

func (c *Client) fromCache(ctx context.Context, rawURL string) (*Response, error) {
	if c.Cache == nil {
		return nil, fmt.Errorf("cache-only mode without cache dir: %w", ErrCacheMiss)
	}
	meta, err := c.Cache.LoadMeta(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrCacheMiss)
	}
	body, err := c.Cache.LoadBody(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrCacheMiss)
	}
	return &Response{Status: http.StatusOK, StatusText: http.StatusText(http.StatusOK), ContentType: meta.ContentType, Body: body, FromCache: true}, nil
}

type rawResponse struct {
	Response
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) (*rawResponse, error) {
	// Concurrency gate per client instance
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json, application/javascript, text/javascript, */*;q=0.1")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &rawResponse{
		Response: Response{
			Status:      resp.StatusCode,
			StatusText:  reasonPhrase(resp),
			ContentType: resp.Header.Get("Content-Type"),
		},
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Status: resp.StatusCode, StatusText: out.StatusText, Body: b}
	}
	if !isAllowedContentType(out.ContentType) {
		return nil, fmt.Errorf("unsupported content type: %s", out.ContentType)
	}
	out.Body = b
	return out, nil
}

// reasonPhrase returns the text after the status code in resp.Status,
// e.g. "Not Found" for "404 Not Found".
func reasonPhrase(resp *http.Response) string {
	s := strings.TrimSpace(resp.Status)
	if code, rest, ok := strings.Cut(s, " "); ok && code == fmt.Sprint(resp.StatusCode) {
		return strings.TrimSpace(rest)
	}
	if s == fmt.Sprint(resp.StatusCode) {
		return ""
	}
	return s
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isAllowedContentType accepts JSON and JSONP payloads. An empty type is
// tolerated since small backends often omit it.
func isAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	for _, p := range []string{"application/json", "application/javascript", "text/javascript", "application/x-javascript", "text/plain"} {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return false
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
		// should not happen, but avoid blocking
	}
}

// NewTransportClient returns an HTTP client with bounded dial and handshake
// times. There is no overall client timeout: the backend receives its own
// timeout hint with every search.
func NewTransportClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
