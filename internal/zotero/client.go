package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is the Zotero-API-Version header value.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit spaces requests to stay clear of Zotero's abuse protection.
	RateLimit = 2.0
)

// Client is a rate-limited HTTP client for one Zotero library.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	apiKey      string
	baseURL     string
	libraryID   string
	libraryType string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLibraryType sets the library type ("group" or "user"). Default is group.
func WithLibraryType(t string) ClientOption {
	return func(c *Client) {
		c.libraryType = t
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit overrides the request rate in requests per second.
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a client for the given library authenticated with apiKey.
func NewClient(libraryID, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(RateLimit), 1),
		apiKey:      apiKey,
		baseURL:     BaseURL,
		libraryID:   libraryID,
		libraryType: "group",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LibraryID returns the library this client operates on.
func (c *Client) LibraryID() string {
	return c.libraryID
}

// libraryPath returns e.g. /groups/4530692.
func (c *Client) libraryPath() string {
	return "/" + c.libraryType + "s/" + url.PathEscape(c.libraryID)
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := string(bytes.TrimSpace(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuthError, resp.StatusCode, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", ErrPreconditionFailed, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// do sends a request after waiting on the limiter. The caller closes the body.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, header http.Header) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Zotero-API-Version", APIVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	if err := checkHTTPErrors(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// Items starts a listing of the library's top-level and child items filtered by
// item type. An empty itemType lists every item. The first page is fetched
// before Items returns.
func (c *Client) Items(ctx context.Context, itemType string, limit int) (*Pager, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("start", "0")
	if itemType != "" {
		q.Set("itemType", itemType)
	}

	p := &Pager{
		client: c,
		next:   c.baseURL + c.libraryPath() + "/items?" + q.Encode(),
	}
	if err := p.fetch(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// GetItem fetches a single item by key.
func (c *Client) GetItem(ctx context.Context, key string) (*Item, error) {
	u := c.baseURL + c.libraryPath() + "/items/" + url.PathEscape(key) + "?format=json"

	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: parsing item: %v", ErrInvalidResponse, err)
	}
	if item.Key == "" {
		return nil, ErrNotFound
	}
	return &item, nil
}

// UpdateItems sets the url field of up to MaxPageSize items in one write.
func (c *Client) UpdateItems(ctx context.Context, updates []UpdateRequest) (*WriteResult, error) {
	if len(updates) == 0 {
		return &WriteResult{}, nil
	}
	if len(updates) > MaxPageSize {
		return nil, fmt.Errorf("%w: %d objects (max %d)", ErrBatchTooLarge, len(updates), MaxPageSize)
	}
	return c.write(ctx, updates)
}

// CreateItems creates up to MaxPageSize new items from their data objects.
func (c *Client) CreateItems(ctx context.Context, items []map[string]any) (*WriteResult, error) {
	if len(items) == 0 {
		return &WriteResult{}, nil
	}
	if len(items) > MaxPageSize {
		return nil, fmt.Errorf("%w: %d objects (max %d)", ErrBatchTooLarge, len(items), MaxPageSize)
	}
	return c.write(ctx, items)
}

func (c *Client) write(ctx context.Context, body any) (*WriteResult, error) {
	u := c.baseURL + c.libraryPath() + "/items"

	resp, err := c.do(ctx, http.MethodPost, u, body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result WriteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: parsing write response: %v", ErrInvalidResponse, err)
	}
	return &result, nil
}

// UpdateItem patches the given fields of one item. The write only succeeds if
// the item is still at the given version. It returns the item's new version.
func (c *Client) UpdateItem(ctx context.Context, key string, version int, fields map[string]any) (int, error) {
	u := c.baseURL + c.libraryPath() + "/items/" + url.PathEscape(key)

	header := http.Header{}
	header.Set("If-Unmodified-Since-Version", strconv.Itoa(version))

	resp, err := c.do(ctx, http.MethodPatch, u, fields, header)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Key = key
		}
		return 0, err
	}
	defer resp.Body.Close()

	if v, err := strconv.Atoi(resp.Header.Get("Last-Modified-Version")); err == nil {
		return v, nil
	}
	return version, nil
}
