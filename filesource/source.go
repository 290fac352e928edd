package filesource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/catalog"
	"github.com/skosovsky/promptcatalog/manifest"
)

// Ensures Source implements catalog.Source.
var _ catalog.Source = (*Source)(nil)

// Source lists the *.yaml and *.yml files directly inside one directory.
// Nothing is cached; every call to Entries reads the directory again.
type Source struct {
	dir string
}

// New creates a Source for dir. The directory does not have to exist yet.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Dir returns the watched directory.
func (s *Source) Dir() string { return s.dir }

// Location implements catalog.Source.
func (s *Source) Location() string { return s.dir }

// Entries returns one entry per manifest file in lexical file-name order.
// A missing directory (or a path that is not a directory) yields ErrSourceUnavailable.
// A file that cannot be read becomes an entry with Err set.
func (s *Source) Entries(ctx context.Context) ([]catalog.Entry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", promptcatalog.ErrSourceUnavailable, s.dir)
		}
		return nil, fmt.Errorf("filesource: stat %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", promptcatalog.ErrSourceUnavailable, s.dir)
	}
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("filesource: read dir %s: %w", s.dir, err)
	}
	entries := make([]catalog.Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !manifest.IsManifestFile(d.Name()) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		path := filepath.Join(s.dir, d.Name())
		e := catalog.Entry{Name: manifest.NameFromPath(path), Origin: path}
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the directory listing
		if err != nil {
			e.Err = fmt.Errorf("filesource: read file: %w", err)
		} else {
			e.Data = data
		}
		entries = append(entries, e)
	}
	return entries, nil
}
