package zotero

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the Zotero client.
var (
	// ErrNotFound indicates the library or item was not found.
	ErrNotFound = errors.New("not found in Zotero")

	// ErrAuthError indicates a missing, invalid or under-privileged API key.
	ErrAuthError = errors.New("Zotero authentication error")

	// ErrRateLimited indicates Zotero asked the client to back off.
	ErrRateLimited = errors.New("Zotero rate limit exceeded")

	// ErrPreconditionFailed indicates the item or library changed since the
	// version the write was based on.
	ErrPreconditionFailed = errors.New("Zotero version precondition failed")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Zotero")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Zotero")

	// ErrBatchTooLarge indicates a write of more objects than Zotero accepts
	// in one request.
	ErrBatchTooLarge = errors.New("batch exceeds Zotero write limit")
)

// APIError represents a non-success HTTP status from the Zotero API.
type APIError struct {
	StatusCode int
	Message    string
	Key        string // Item key, when the error concerns a single item
}

func (e *APIError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("Zotero API error (status %d): %s (item: %s)", e.StatusCode, e.Message, e.Key)
	}
	return fmt.Sprintf("Zotero API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
