package promptcatalog

import (
	"context"
	"fmt"
	"slices"
)

// VariableSpec declares one template variable of a Definition.
// Type and Description are advisory text and are never checked at call time.
type VariableSpec struct {
	Name        string
	Description string
	Type        string
	Required    bool
	Default     *string // nil when the definition declares no default
}

// Definition is one named prompt: its template body and declared variables.
// Definitions are immutable once loaded; a reload replaces them wholesale.
type Definition struct {
	Name        string // from the source identifier (file stem), never from the body
	Description string
	Template    string
	Variables   []VariableSpec
	Origin      string // where the definition was read from, e.g. a file path
}

// DefaultDescription is the description given to definitions that declare none.
func DefaultDescription(name string) string {
	return fmt.Sprintf("Prompt from %s.yaml", name)
}

// Clone returns a deep copy so callers cannot mutate a catalog snapshot.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := *d
	out.Variables = slices.Clone(d.Variables)
	for i, v := range out.Variables {
		if v.Default != nil {
			def := *v.Default
			out.Variables[i].Default = &def
		}
	}
	return &out
}

// Info is the host-facing metadata of one prompt.
type Info struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Params       []Param  `json:"params" yaml:"params"`
	Placeholders []string `json:"placeholders,omitempty" yaml:"placeholders,omitempty"`
	Origin       string   `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// NewInfo builds the metadata view of d.
func NewInfo(d *Definition) Info {
	return Info{
		Name:         d.Name,
		Description:  d.Description,
		Params:       BuildContract(d.Variables).Params(),
		Placeholders: Placeholders(d.Template),
		Origin:       d.Origin,
	}
}

// Service is the surface a host (e.g. a protocol server) exposes to remote callers:
// enumerate prompts, fetch metadata, invoke one prompt, and trigger a reload.
type Service interface {
	Names(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (Info, error)
	Invoke(ctx context.Context, name string, args map[string]string) (string, error)
	Reload(ctx context.Context) (int, error)
}
