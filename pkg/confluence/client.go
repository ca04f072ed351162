// Package confluence is a minimal client for the Confluence Cloud REST
// API, covering exactly what a space export needs: space lookup, paginated
// page enumeration, page bodies in storage representation, attachment
// listing and streamed attachment downloads.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is the page size used for paginated listings.
	DefaultBatchSize = 100

	// DefaultTimeout bounds every single request issued by the client.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

// Client talks to one Confluence Cloud site on behalf of one account.
// The API token is held for the lifetime of the client only and is never
// included in errors or log output.
type Client struct {
	baseURL   *url.URL
	email     string
	token     string
	http      *http.Client
	limiter   *rate.Limiter
	batchSize int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (e.g. for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBatchSize sets the page size for paginated listings.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithRateLimit throttles outgoing requests to rps requests per second.
// Confluence Cloud rate-limits aggressively on large spaces.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New validates the site URL and builds a client. The URL must be
// absolute with both scheme and host; this is checked here, before any
// network call, so a malformed configuration fails the whole run.
func New(siteURL, email, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(siteURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidSiteURL
	}

	c := &Client{
		baseURL:   u,
		email:     email,
		token:     token,
		http:      &http.Client{Timeout: DefaultTimeout},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized site URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// get issues an authenticated GET against a path relative to the site
// root and returns the response if the status is 200. The caller owns
// the body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ref := &url.URL{Path: path, RawQuery: query.Encode()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// getJSON decodes a 200 response body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// paginate walks a start/limit listing endpoint from offset 0, advancing
// by the batch size, until a batch comes back empty or short. The server
// is never asked for a total count; termination is driven purely by
// response size. fetch receives the offset and limit and reports how
// many results that batch contained.
func (c *Client) paginate(fetch func(start, limit int) (int, error)) error {
	for start := 0; ; start += c.batchSize {
		n, err := fetch(start, c.batchSize)
		if err != nil {
			return err
		}
		if n == 0 || n < c.batchSize {
			return nil
		}
	}
}

func listQuery(start, limit int) url.Values {
	return url.Values{
		"start": {strconv.Itoa(start)},
		"limit": {strconv.Itoa(limit)},
	}
}
