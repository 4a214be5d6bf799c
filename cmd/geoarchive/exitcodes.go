package main

import (
	"errors"

	"github.com/geoarchive/geoarchive/internal/config"
	"github.com/geoarchive/geoarchive/internal/geokb"
	"github.com/geoarchive/geoarchive/internal/sciencebase"
	"github.com/geoarchive/geoarchive/internal/zotero"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Missing or invalid configuration
	ExitAPIError    = 3 // Zotero, ScienceBase or GeoKB request failed
)

// apiErrors are the service failures reported with ExitAPIError.
var apiErrors = []error{
	zotero.ErrNotFound,
	zotero.ErrAuthError,
	zotero.ErrRateLimited,
	zotero.ErrPreconditionFailed,
	zotero.ErrNetworkError,
	zotero.ErrInvalidResponse,
	sciencebase.ErrNotLoggedIn,
	sciencebase.ErrNotFound,
	sciencebase.ErrNetworkError,
	sciencebase.ErrInvalidResponse,
	geokb.ErrQueryFailed,
	geokb.ErrNetworkError,
	geokb.ErrInvalidResponse,
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if config.IsConfigError(err) {
		return ExitConfigError
	}

	var zErr *zotero.APIError
	var sbErr *sciencebase.APIError
	if errors.As(err, &zErr) || errors.As(err, &sbErr) {
		return ExitAPIError
	}
	for _, target := range apiErrors {
		if errors.Is(err, target) {
			return ExitAPIError
		}
	}
	return ExitError
}
