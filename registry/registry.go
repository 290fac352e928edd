package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/catalog"
	"github.com/skosovsky/promptcatalog/internal/cast"
)

// Ensures Registry implements promptcatalog.Service.
var _ promptcatalog.Service = (*Registry)(nil)

// Handle is the callable unit exposed for one definition. Its metadata reflects the snapshot
// it was built from; Invoke always resolves the definition in the catalog's current snapshot.
type Handle struct {
	Name        string
	Description string
	Contract    promptcatalog.Contract
	Origin      string

	reg *Registry
}

// Params returns the declared parameters in declaration order.
func (h *Handle) Params() []promptcatalog.Param {
	return h.Contract.Params()
}

// Invoke renders the handle's definition with args. See Registry.Invoke.
func (h *Handle) Invoke(ctx context.Context, args map[string]string) (string, error) {
	return h.reg.Invoke(ctx, h.Name, args)
}

// handleSet is the immutable handle collection for one catalog generation.
type handleSet struct {
	generation uint64
	byName     map[string]*Handle
	ordered    []*Handle
}

// Registry turns every catalog entry into a Handle and keeps the handle set in step with
// the catalog: each reload replaces the whole set.
type Registry struct {
	catalog     *catalog.Catalog
	logger      *slog.Logger
	handles     atomic.Pointer[handleSet]
	unsubscribe func()
}

// New builds handles for the catalog's current snapshot and subscribes to its reloads.
// Panics if c is nil.
func New(c *catalog.Catalog, opts ...Option) *Registry {
	if c == nil {
		panic("registry: Catalog must not be nil")
	}
	r := &Registry{catalog: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.handles.Store(&handleSet{byName: map[string]*Handle{}})
	r.unsubscribe = c.OnReload(r.rebuild)
	r.rebuild(c.Snapshot())
	return r
}

// Close stops following catalog reloads. Existing handles stay usable.
func (r *Registry) Close() {
	r.unsubscribe()
}

// rebuild installs handles for snap unless a newer generation is already installed.
func (r *Registry) rebuild(snap *catalog.Snapshot) {
	names := snap.Names()
	set := &handleSet{
		generation: snap.Generation(),
		byName:     make(map[string]*Handle, len(names)),
		ordered:    make([]*Handle, 0, len(names)),
	}
	for _, name := range names {
		def, contract, ok := snap.Entry(name)
		if !ok {
			continue
		}
		h := &Handle{
			Name:        def.Name,
			Description: def.Description,
			Contract:    contract,
			Origin:      def.Origin,
			reg:         r,
		}
		set.byName[name] = h
		set.ordered = append(set.ordered, h)
	}
	for {
		cur := r.handles.Load()
		if cur.generation > set.generation {
			return
		}
		if r.handles.CompareAndSwap(cur, set) {
			r.logger.Debug("prompt handles rebuilt", "count", len(set.ordered), "generation", set.generation)
			return
		}
	}
}

// Names returns the names of the current handles in discovery order.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	set := r.handles.Load()
	names := make([]string, len(set.ordered))
	for i, h := range set.ordered {
		names[i] = h.Name
	}
	return names, nil
}

// Handles returns the current handles in discovery order.
func (r *Registry) Handles() []*Handle {
	set := r.handles.Load()
	out := make([]*Handle, len(set.ordered))
	copy(out, set.ordered)
	return out
}

// Handle returns the current handle for name, or ErrNotFound.
func (r *Registry) Handle(name string) (*Handle, error) {
	h, ok := r.handles.Load().byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", promptcatalog.ErrNotFound, name)
	}
	return h, nil
}

// Describe returns the metadata of name from the current snapshot.
func (r *Registry) Describe(ctx context.Context, name string) (promptcatalog.Info, error) {
	if ctx.Err() != nil {
		return promptcatalog.Info{}, ctx.Err()
	}
	def, _, ok := r.catalog.Snapshot().Entry(name)
	if !ok {
		return promptcatalog.Info{}, fmt.Errorf("%w: %q", promptcatalog.ErrNotFound, name)
	}
	return promptcatalog.NewInfo(def), nil
}

// Invoke renders the named definition with args.
//
// The definition and its contract come from one snapshot, taken when the call starts, so a
// reload during the call cannot mix versions. Every missing required argument is reported in
// one *promptcatalog.MissingVariablesError. Declared defaults fill omitted arguments; undeclared
// arguments are still substituted.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	def, contract, ok := r.catalog.Snapshot().Entry(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", promptcatalog.ErrNotFound, name)
	}
	if missing := contract.Missing(args); len(missing) > 0 {
		return "", &promptcatalog.MissingVariablesError{Prompt: name, Variables: missing}
	}
	out := promptcatalog.Render(def.Template, contract.Bind(args))
	r.logger.Debug("rendered prompt", "name", name, "args", len(args))
	return out, nil
}

// InvokeAny is Invoke for host values of any scalar type. Nil values count as omitted;
// composite values are rejected.
func (r *Registry) InvokeAny(ctx context.Context, name string, args map[string]any) (string, error) {
	text, err := cast.ToTextMap(args)
	if err != nil {
		return "", fmt.Errorf("registry: prompt %q: %w", name, err)
	}
	return r.Invoke(ctx, name, text)
}

// InvokeStruct is Invoke with arguments taken from a tagged struct or a generated argument
// type; see promptcatalog.StructArgs.
func (r *Registry) InvokeStruct(ctx context.Context, name string, args any) (string, error) {
	text, err := promptcatalog.StructArgs(args)
	if err != nil {
		return "", fmt.Errorf("registry: prompt %q: %w", name, err)
	}
	return r.Invoke(ctx, name, text)
}

// Reload reloads the underlying catalog; handles are rebuilt before it returns.
func (r *Registry) Reload(ctx context.Context) (int, error) {
	return r.catalog.Reload(ctx)
}
