package sciencebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the ScienceBase catalog API base URL.
	BaseURL = "https://www.sciencebase.gov/catalog"

	// TokenURL is the ScienceBase Keycloak token endpoint.
	TokenURL = "https://www.sciencebase.gov/auth/realms/ScienceBase/protocol/openid-connect/token"

	// ClientID is the Keycloak client the catalog tokens are issued to.
	ClientID = "catalog"

	// DefaultTimeout is the default HTTP request timeout. Uploads of large
	// report PDFs need more than the usual 30 seconds.
	DefaultTimeout = 5 * time.Minute

	// RateLimit spaces requests to ScienceBase.
	RateLimit = 5.0
)

// Token is a ScienceBase session token pair.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Client is an authenticated ScienceBase session.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	tokenURL   string
	token      Token
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom catalog base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithTokenURL sets a custom token endpoint (for testing).
func WithTokenURL(u string) ClientOption {
	return func(c *Client) {
		c.tokenURL = u
	}
}

// WithRateLimit overrides the request rate in requests per second.
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a session from a user's token pair.
func NewClient(token Token, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		tokenURL:   TokenURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current token pair.
func (c *Client) Token() Token {
	return c.token
}

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
		return fmt.Errorf("%w: status %d", ErrNotLoggedIn, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// send issues req with the bearer token after waiting on the limiter.
// The caller closes the body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.token.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	}
	req.Header.Set("Accept", "application/json")

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

func (c *Client) doJSON(ctx context.Context, method, rawURL string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// IsLoggedIn reports whether ScienceBase accepts the session's access token.
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	var info struct {
		IsLoggedIn bool   `json:"isLoggedIn"`
		Username   string `json:"username"`
	}
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/jossoHelper/sessionInfo?includeJossoSessionId=true", nil, &info)
	if err != nil {
		if errors.Is(err, ErrNotLoggedIn) {
			return false, nil
		}
		return false, err
	}
	return info.IsLoggedIn, nil
}

// Login checks the session and refreshes the access token once if it was
// rejected. It returns ErrNotLoggedIn if the session still is not accepted.
func (c *Client) Login(ctx context.Context) error {
	ok, err := c.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if c.token.RefreshToken == "" {
		return ErrNotLoggedIn
	}
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	ok, err = c.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLoggedIn
	}
	return nil
}

// Refresh exchanges the refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", ClientID)
	form.Set("refresh_token", c.token.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: token refresh returned status %d", ErrNotLoggedIn, resp.StatusCode)
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: token response has no access_token", ErrInvalidResponse)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}
	c.token = tok
	return nil
}

// GetItem fetches an item by ID.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var item Item
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/item/"+url.PathEscape(id)+"?format=json", nil, &item); err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &item, nil
}

// UpdateItem writes item back to ScienceBase and returns the stored version.
func (c *Client) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("updating item: item has no id")
	}
	var out Item
	if err := c.doJSON(ctx, http.MethodPut, c.baseURL+"/item/"+url.PathEscape(item.ID), item, &out); err != nil {
		return nil, fmt.Errorf("updating item %s: %w", item.ID, err)
	}
	return &out, nil
}

// UpsertItem uploads files and creates the item (or updates it when it has an
// ID) in one request.
func (c *Client) UpsertItem(ctx context.Context, item *Item, paths []string) (*Item, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	itemJSON, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshaling item: %w", err)
	}
	if err := mw.WriteField("item", string(itemJSON)); err != nil {
		return nil, fmt.Errorf("writing item field: %w", err)
	}

	for _, p := range paths {
		if err := attachFile(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	u := c.baseURL + "/file/uploadAndUpsertItem/?scrapeFile=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("upserting item: %w", err)
	}
	defer resp.Body.Close()

	var out Item
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &out, nil
}

func attachFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying %s: %w", path, err)
	}
	return nil
}

// ReplaceFile uploads path to an existing item, replacing the attached file
// with the same name.
func (c *Client) ReplaceFile(ctx context.Context, item *Item, path string) (*Item, error) {
	name := filepath.Base(path)
	shell := &Item{ID: item.ID}
	for _, f := range item.Files {
		if f.Name != name {
			shell.Files = append(shell.Files, f)
		}
	}
	return c.UpsertItem(ctx, shell, []string{path})
}

// DownloadFile saves the file at fileURL as dest/name and returns the path.
func (c *Client) DownloadFile(ctx context.Context, fileURL, dest, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	path := filepath.Join(dest, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
