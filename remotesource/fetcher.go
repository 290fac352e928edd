package remotesource

import (
	"context"

	"github.com/skosovsky/promptcatalog/manifest"
)

// Fetcher lists and fetches raw YAML manifests from a remote location.
// HTTP and Git are typical implementations.
//
// List returns definition names in discovery order. Return an error wrapping
// promptcatalog.ErrSourceUnavailable when the location itself does not exist.
// Fetch returns ErrNotFound for a name with no manifest; wrap other errors in ErrFetchFailed.
type Fetcher interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Locator is optional. When implemented by a Fetcher, Source.Location uses it.
type Locator interface {
	Location() string
}

// CandidatePaths returns manifest file name candidates in resolution order: name.yaml, name.yml.
// Validate name with promptcatalog.ValidateName before using the result in paths.
func CandidatePaths(name string) []string {
	paths := make([]string, 0, len(manifest.Extensions))
	for _, ext := range manifest.Extensions {
		paths = append(paths, name+ext)
	}
	return paths
}
