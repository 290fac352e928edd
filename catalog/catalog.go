package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/manifest"
)

// Decoder turns one entry's bytes into a Definition named name.
type Decoder func(name string, data []byte) (*promptcatalog.Definition, error)

// Catalog owns the current name → Definition mapping of one Source.
// Reads are lock-free; Reload builds a new Snapshot and swaps it in atomically.
type Catalog struct {
	source  Source
	decode  Decoder
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
	sf      singleflight.Group

	mu          sync.Mutex
	nextSubID   int
	subscribers []subscriber
}

type subscriber struct {
	id int
	fn func(*Snapshot)
}

// New creates an empty Catalog bound to src. Call Load to populate it.
// Panics if src is nil.
func New(src Source, opts ...Option) *Catalog {
	if src == nil {
		panic("catalog: Source must not be nil")
	}
	c := &Catalog{
		source: src,
		decode: manifest.ParseBytes,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(newSnapshot(nil, nil, 0, c.now()))
	return c
}

// Open creates a Catalog for src and performs the initial load.
func Open(ctx context.Context, src Source, opts ...Option) (*Catalog, error) {
	c := New(src, opts...)
	if _, err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// detachCancel returns a context that is not cancelled when parent is cancelled,
// but still respects parent's deadline so a shared load does not hang.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

// Load reads every entry of the source and replaces the catalog. It is the same operation
// as Reload; the name marks the initial call.
func (c *Catalog) Load(ctx context.Context) (int, error) {
	return c.Reload(ctx)
}

// Reload performs a full load against the catalog's source and atomically swaps the whole
// mapping. It returns the number of definitions now in the catalog.
//
// Entries that fail to read or decode are logged and skipped. An unavailable source yields an
// empty catalog and a warning. Any other source error keeps the current catalog and is returned.
// Concurrent calls share one load.
func (c *Catalog) Reload(ctx context.Context) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	v, err, _ := c.sf.Do("reload", func() (any, error) {
		loadCtx, cancel := detachCancel(ctx)
		defer cancel()
		return c.load(loadCtx)
	})
	if err != nil {
		return 0, err
	}
	return v.(*Snapshot).Len(), nil
}

func (c *Catalog) load(ctx context.Context) (*Snapshot, error) {
	location := c.source.Location()
	entries, err := c.source.Entries(ctx)
	if err != nil {
		if !errors.Is(err, promptcatalog.ErrSourceUnavailable) {
			return nil, fmt.Errorf("catalog: list %s: %w", location, err)
		}
		c.logger.Warn("prompt source unavailable, catalog is empty", "location", location, "err", err)
		entries = nil
	}
	defs := make([]*promptcatalog.Definition, 0, len(entries))
	var failures []error
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		def, err := c.decodeEntry(e)
		if err != nil {
			failures = append(failures, err)
			c.logger.Warn("skipping prompt", "name", e.Name, "origin", e.Origin, "err", err)
			continue
		}
		if first, dup := seen[def.Name]; dup {
			err := &promptcatalog.DecodeError{
				Name:   e.Name,
				Origin: e.Origin,
				Err:    fmt.Errorf("duplicate prompt name, already loaded from %s", first),
			}
			failures = append(failures, err)
			c.logger.Warn("skipping prompt", "name", e.Name, "origin", e.Origin, "err", err)
			continue
		}
		seen[def.Name] = def.Origin
		defs = append(defs, def)
		c.logger.Info("loaded prompt", "name", def.Name, "origin", def.Origin)
	}
	prev := c.current.Load()
	snap := newSnapshot(defs, failures, prev.Generation()+1, c.now())
	c.current.Store(snap)
	c.logger.Info("catalog reloaded",
		"location", location,
		"count", snap.Len(),
		"skipped", len(failures),
		"generation", snap.Generation(),
	)
	c.notify(snap)
	return snap, nil
}

func (c *Catalog) decodeEntry(e Entry) (*promptcatalog.Definition, error) {
	if e.Err != nil {
		return nil, &promptcatalog.DecodeError{Name: e.Name, Origin: e.Origin, Err: e.Err}
	}
	if err := promptcatalog.ValidateName(e.Name); err != nil {
		return nil, &promptcatalog.DecodeError{Name: e.Name, Origin: e.Origin, Err: err}
	}
	def, err := c.decode(e.Name, e.Data)
	if err != nil {
		return nil, &promptcatalog.DecodeError{Name: e.Name, Origin: e.Origin, Err: err}
	}
	if def == nil {
		err := fmt.Errorf("%w: decoder returned no definition", promptcatalog.ErrInvalidDefinition)
		return nil, &promptcatalog.DecodeError{Name: e.Name, Origin: e.Origin, Err: err}
	}
	def.Name = e.Name
	if def.Origin == "" {
		def.Origin = e.Origin
	}
	return def, nil
}

// Snapshot returns the current immutable snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Get returns a copy of the named definition from the current snapshot, or ErrNotFound.
func (c *Catalog) Get(name string) (*promptcatalog.Definition, error) {
	return c.current.Load().Get(name)
}

// Names returns the current definition names in discovery order.
func (c *Catalog) Names() []string {
	return c.current.Load().Names()
}

// Len returns the number of definitions in the current snapshot.
func (c *Catalog) Len() int {
	return c.current.Load().Len()
}

// Location describes the catalog's source.
func (c *Catalog) Location() string {
	return c.source.Location()
}

// OnReload registers fn to run after every swap, synchronously on the reloading goroutine.
// The returned func unregisters it.
func (c *Catalog) OnReload(fn func(*Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subscribers {
			if s.id == id {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (c *Catalog) notify(snap *Snapshot) {
	c.mu.Lock()
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()
	for _, s := range subs {
		s.fn(snap)
	}
}
