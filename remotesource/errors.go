package remotesource

import "errors"

// Sentinel errors for remote source operations.
// Callers should use errors.Is to check.
var (
	// ErrFetchFailed indicates the Fetcher could not retrieve a manifest or the index.
	ErrFetchFailed = errors.New("remotesource: fetch failed")
	// ErrHTTPStatus indicates an unexpected HTTP status (e.g. 500) when using HTTPFetcher.
	ErrHTTPStatus = errors.New("remotesource: unexpected HTTP status")
	// ErrNotFound indicates a listed manifest has no body at any candidate path.
	ErrNotFound = errors.New("remotesource: no manifest found")
)
