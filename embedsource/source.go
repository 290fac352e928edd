package embedsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/catalog"
	"github.com/skosovsky/promptcatalog/manifest"
)

// Ensures Source implements catalog.Source.
var _ catalog.Source = (*Source)(nil)

// Source lists every manifest under root in an fs.FS (typically embed.FS). No mutex: fs.FS
// values used here are read-only.
type Source struct {
	fsys fs.FS
	root string
}

// New creates a Source that walks fsys from root. Use "." for the whole FS.
func New(fsys fs.FS, root string) *Source {
	if root == "" {
		root = "."
	}
	return &Source{fsys: fsys, root: root}
}

// Location implements catalog.Source.
func (s *Source) Location() string { return "fs:" + s.root }

// Entries walks root in lexical order, descending into subdirectories. The definition name is
// the file stem, so the same stem in two directories is a duplicate and the first one wins.
// A missing root yields ErrSourceUnavailable.
func (s *Source) Entries(ctx context.Context) ([]catalog.Entry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var entries []catalog.Entry
	err := fs.WalkDir(s.fsys, s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !manifest.IsManifestFile(path) {
			return nil
		}
		e := catalog.Entry{Name: manifest.NameFromPath(path), Origin: path}
		data, err := fs.ReadFile(s.fsys, path)
		if err != nil {
			e.Err = fmt.Errorf("embedsource: read %s: %w", path, err)
		} else {
			e.Data = data
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && len(entries) == 0 {
			return nil, fmt.Errorf("%w: %s: %w", promptcatalog.ErrSourceUnavailable, s.root, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("embedsource: walk %s: %w", s.root, err)
	}
	return entries, nil
}
