package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goferret/internal/fetch"
)

// DefaultServerURL is used when the page origin cannot supply one, e.g. when
// the page was opened from a local file.
const DefaultServerURL = "http://localhost:3030"

// DefaultTimeout is the server-side search timeout hint sent with every query.
const DefaultTimeout = 5000 * time.Millisecond

// Formats understood by Client.
const (
	FormatJSONP = "jsonp"
	FormatJSON  = "json"
)

// ErrNotArray is returned when the backend answered with valid JSON that is
// not a list, e.g. null or an object.
var ErrNotArray = errors.New("response is not an array")

// Getter is the transport the client needs; *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Client issues provider and search calls against a Ferret backend.
type Client struct {
	BaseURL string
	HTTP    Getter
	// Format is FormatJSONP (default) or FormatJSON.
	Format string
	// Callback is the JSONP callback name. Defaults to "goferret".
	Callback string
	// Timeout is sent to the backend as the `timeout` parameter. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// ResolveServerURL derives the backend base URL from the page origin the UI
// was loaded from. An empty or file: origin falls back to DefaultServerURL.
func ResolveServerURL(pageURL string) string {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return DefaultServerURL
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "file" || u.Host == "" {
		return DefaultServerURL
	}
	return u.Scheme + "://" + u.Host
}

// FormatTimeout renders d the way the backend expects it, e.g. "5000ms".
func FormatTimeout(d time.Duration) string {
	if d <= 0 {
		d = DefaultTimeout
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

// Providers fetches the provider list.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	u, err := c.endpoint("/providers", nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var list []Provider
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	out := list[:0]
	for _, p := range list {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Search runs q and returns the provider's results. An empty list is a
// valid answer; ErrNotArray means there is nothing to render.
func (c *Client) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{}
	params.Set("provider", q.Provider)
	params.Set("keyword", q.Keyword)
	params.Set("timeout", FormatTimeout(c.Timeout))
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	u, err := c.endpoint("/search", params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	raw, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	log.Debug().Str("provider", q.Provider).Str("keyword", q.Keyword).Int("count", len(results)).Dur("elapsed", time.Since(start)).Msg("search done")
	return results, nil
}

func (c *Client) endpoint(path string, params url.Values) (string, error) {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = DefaultServerURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	if params == nil {
		params = url.Values{}
	}
	if c.jsonp() {
		params.Set("callback", c.callback())
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// get fetches u and returns the JSON payload with any JSONP wrapper removed.
// Payloads that are valid JSON but not arrays yield ErrNotArray.
func (c *Client) get(ctx context.Context, u string) (json.RawMessage, error) {
	if c.HTTP == nil {
		return nil, errors.New("search client has no transport")
	}
	resp, err := c.HTTP.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	raw, err := c.payload(resp.Body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid json from %s", u)
	}
	if raw[0] != '[' {
		return nil, ErrNotArray
	}
	return raw, nil
}

func (c *Client) payload(body []byte) ([]byte, error) {
	if !c.jsonp() {
		return body, nil
	}
	return unwrapJSONP(body)
}

func (c *Client) jsonp() bool {
	return c.Format == "" || strings.EqualFold(c.Format, FormatJSONP)
}

func (c *Client) callback() string {
	if c.Callback != "" {
		return c.Callback
	}
	return "goferret"
}
