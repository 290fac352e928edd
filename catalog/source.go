package catalog

import (
	"context"
)

// Entry is one raw prompt definition as produced by a Source.
// A non-nil Err marks an entry that could not be read; the catalog logs and skips it.
type Entry struct {
	Name   string // definition name, derived from the source identifier
	Origin string // e.g. file path or URL
	Data   []byte
	Err    error
}

// Source lists the raw entries of one prompt location, in discovery order.
//
// Return an error wrapping promptcatalog.ErrSourceUnavailable when the location does not exist;
// the catalog then becomes empty. Any other error aborts the load and keeps the previous catalog.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
	Location() string
}
