package promptcatalog

import (
	"maps"
	"slices"
)

// Param is one entry of a Contract's ordered parameter list.
type Param struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool    `json:"required" yaml:"required"`
	Default     *string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Contract is the parameter contract derived from a Definition's variables:
// an ordered parameter list plus the set of required names.
// The zero value accepts any arguments.
type Contract struct {
	params   []Param
	required map[string]struct{}
}

// BuildContract derives a Contract from declared variables. Pure; order is preserved.
func BuildContract(vars []VariableSpec) Contract {
	c := Contract{
		params:   make([]Param, 0, len(vars)),
		required: make(map[string]struct{}),
	}
	for _, v := range vars {
		c.params = append(c.params, Param{
			Name:        v.Name,
			Description: v.Description,
			Required:    v.Required,
			Default:     v.Default,
		})
		if v.Required {
			c.required[v.Name] = struct{}{}
		}
	}
	return c
}

// Params returns a copy of the ordered parameter list.
func (c Contract) Params() []Param {
	return slices.Clone(c.params)
}

// Names returns every declared parameter name in declaration order.
func (c Contract) Names() []string {
	out := make([]string, 0, len(c.params))
	for _, p := range c.params {
		out = append(out, p.Name)
	}
	return out
}

// RequiredNames returns the required parameter names in declaration order.
func (c Contract) RequiredNames() []string {
	var out []string
	for _, p := range c.params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// IsRequired reports whether name is a required parameter.
func (c Contract) IsRequired(name string) bool {
	_, ok := c.required[name]
	return ok
}

// Missing returns every required name absent from args, in declaration order.
// A declared default does not satisfy a required parameter.
func (c Contract) Missing(args map[string]string) []string {
	var out []string
	for _, p := range c.params {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			out = append(out, p.Name)
		}
	}
	return out
}

// Bind turns call arguments into ordered substitutions: declared parameters first
// (in declaration order, declared defaults filling omitted ones), then undeclared
// arguments in lexical order. Omitted parameters without a default produce no binding.
func (c Contract) Bind(args map[string]string) []Binding {
	out := make([]Binding, 0, len(args)+len(c.params))
	declared := make(map[string]struct{}, len(c.params))
	for _, p := range c.params {
		if _, seen := declared[p.Name]; seen {
			continue
		}
		declared[p.Name] = struct{}{}
		if v, ok := args[p.Name]; ok {
			out = append(out, Binding{Name: p.Name, Value: v})
			continue
		}
		if p.Default != nil {
			out = append(out, Binding{Name: p.Name, Value: *p.Default})
		}
	}
	for _, name := range slices.Sorted(maps.Keys(args)) {
		if _, ok := declared[name]; ok {
			continue
		}
		out = append(out, Binding{Name: name, Value: args[name]})
	}
	return out
}
