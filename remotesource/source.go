package remotesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/catalog"
)

// Ensures Source implements catalog.Source.
var _ catalog.Source = (*Source)(nil)

// Source adapts a Fetcher to catalog.Source.
type Source struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// New creates a Source that uses the given Fetcher.
// Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Source {
	if fetcher == nil {
		panic("remotesource: Fetcher must not be nil")
	}
	s := &Source{
		fetcher:     fetcher,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location implements catalog.Source.
func (s *Source) Location() string {
	if l, ok := s.fetcher.(Locator); ok {
		return l.Location()
	}
	return "remote"
}

// Entries lists the remote index and fetches every listed manifest, keeping list order.
// A name that fails validation or fetching becomes an entry with Err set; only listing
// failures and cancellation abort the call.
func (s *Source) Entries(ctx context.Context) ([]catalog.Entry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	names, err := s.fetcher.List(ctx)
	if err != nil {
		if errors.Is(err, promptcatalog.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("remotesource: list: %w", err)
	}
	location := s.Location()
	entries := make([]catalog.Entry, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		entries[i] = catalog.Entry{Name: name, Origin: location + "/" + name}
		if err := promptcatalog.ValidateName(name); err != nil {
			entries[i].Err = err
			continue
		}
		g.Go(func() error {
			data, err := s.fetcher.Fetch(gctx, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Debug("remote fetch failed", "name", name, "err", err)
				entries[i].Err = err
				return nil
			}
			entries[i].Data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close calls Close on the underlying Fetcher if it implements the interface.
// Use this to clean up resources (e.g. git.Fetcher removes the local clone).
func (s *Source) Close() error {
	if c, ok := s.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
