// Package geokb queries the GeoKB Wikibase instance for the reference
// entities reports are linked to.
package geokb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit spaces SPARQL queries.
	RateLimit = 1.0

	sparqlResultsJSON = "application/sparql-results+json"
)

var (
	// ErrQueryFailed indicates the endpoint rejected a query.
	ErrQueryFailed = errors.New("SPARQL query failed")

	// ErrInvalidResponse indicates a result set that could not be decoded.
	ErrInvalidResponse = errors.New("invalid SPARQL response")

	// ErrNetworkError indicates the endpoint could not be reached.
	ErrNetworkError = errors.New("network error communicating with GeoKB")
)

// Term is one bound value in a SPARQL result row.
type Term struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Binding is one result row keyed by variable name.
type Binding map[string]Term

// Value returns the value bound to name, or "".
func (b Binding) Value(name string) string {
	return b[name].Value
}

type results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Client queries a Wikibase SPARQL endpoint.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit overrides the query rate in requests per second.
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a client for the SPARQL endpoint. Wikibase hosts reject
// anonymous agents, so userAgent should identify the bot and a contact.
func NewClient(endpoint, userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		endpoint:   endpoint,
		userAgent:  userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs a SELECT query and returns its rows.
func (c *Client) Query(ctx context.Context, sparql string) ([]Binding, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.endpoint + "?" + url.Values{"query": {sparql}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", sparqlResultsJSON)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrQueryFailed, resp.StatusCode, body)
	}

	var res results
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return res.Results.Bindings, nil
}
