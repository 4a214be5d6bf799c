package sciencebase

import (
	"errors"
	"fmt"
)

// Common errors returned by the ScienceBase client.
var (
	// ErrNotLoggedIn indicates the session tokens were not accepted.
	ErrNotLoggedIn = errors.New("failed to authenticate to ScienceBase")

	// ErrNotFound indicates the item or file was not found.
	ErrNotFound = errors.New("not found in ScienceBase")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with ScienceBase")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from ScienceBase")
)

// APIError represents a non-success HTTP status from ScienceBase.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ScienceBase API error (status %d): %s", e.StatusCode, e.Message)
}
