// Package manifest decodes YAML prompt definition files into promptcatalog.Definition values.
//
// A manifest is a mapping with optional keys description, template and variables; each
// variable has a name, an optional required flag and an optional default. The record shape is
// checked against an embedded JSON Schema before it is bound, so a non-text template or a
// variable without a name is reported as promptcatalog.ErrInvalidDefinition.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/promptcatalog"
	"github.com/skosovsky/promptcatalog/internal/cast"
)

//go:embed definition.schema.json
var definitionSchemaJSON []byte

var definitionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("definition.schema.json", bytes.NewReader(definitionSchemaJSON)); err != nil {
		panic(fmt.Sprintf("manifest: load definition schema: %v", err))
	}
	schema, err := compiler.Compile("definition.schema.json")
	if err != nil {
		panic(fmt.Sprintf("manifest: compile definition schema: %v", err))
	}
	return schema
}

// fileManifest is the YAML manifest shape.
type fileManifest struct {
	Description *string `yaml:"description"`
	Template    *string `yaml:"template"`
	Variables   []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Type        string `yaml:"type"`
		Required    bool   `yaml:"required"`
		Default     any    `yaml:"default"`
	} `yaml:"variables"`
}

// ParseBytes decodes one manifest. name is the definition's identity (normally the file stem);
// it is not read from the body.
func ParseBytes(name string, data []byte) (*promptcatalog.Definition, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	var m fileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", promptcatalog.ErrInvalidDefinition, err)
	}
	return buildDefinition(name, &m)
}

// ParseFile reads and decodes a manifest file. The definition name is the file stem.
func ParseFile(path string) (*promptcatalog.Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from a directory listing or the caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	def, err := ParseBytes(NameFromPath(path), data)
	if err != nil {
		return nil, err
	}
	def.Origin = path
	return def, nil
}

// ParseFS reads and decodes a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*promptcatalog.Definition, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	def, err := ParseBytes(NameFromPath(path.Base(name)), data)
	if err != nil {
		return nil, err
	}
	def.Origin = name
	return def, nil
}

// NameFromPath returns the definition name for a manifest path: the base name without extension.
func NameFromPath(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// validate checks the record shape against the definition schema. The YAML document is
// normalized to JSON values first so the validator sees only JSON types.
func validate(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", promptcatalog.ErrInvalidDefinition, err)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: not representable as a record: %w", promptcatalog.ErrInvalidDefinition, err)
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %w", promptcatalog.ErrInvalidDefinition, err)
	}
	if err := definitionSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", promptcatalog.ErrInvalidDefinition, err)
	}
	return nil
}

func buildDefinition(name string, m *fileManifest) (*promptcatalog.Definition, error) {
	def := &promptcatalog.Definition{
		Name:        name,
		Description: promptcatalog.DefaultDescription(name),
	}
	if m.Description != nil {
		def.Description = *m.Description
	}
	if m.Template != nil {
		def.Template = *m.Template
	}
	seen := make(map[string]bool, len(m.Variables))
	for i, v := range m.Variables {
		if seen[v.Name] {
			return nil, fmt.Errorf("%w: variable %d: duplicate name %q", promptcatalog.ErrInvalidDefinition, i, v.Name)
		}
		seen[v.Name] = true
		spec := promptcatalog.VariableSpec{
			Name:        v.Name,
			Description: v.Description,
			Type:        v.Type,
			Required:    v.Required,
		}
		if v.Default != nil {
			text, ok := cast.ToText(v.Default)
			if !ok {
				return nil, fmt.Errorf("%w: variable %q: default must be a scalar", promptcatalog.ErrInvalidDefinition, v.Name)
			}
			spec.Default = &text
		}
		def.Variables = append(def.Variables, spec)
	}
	return def, nil
}

// Extensions lists the file extensions recognized as manifests, in lookup order.
var Extensions = []string{".yaml", ".yml"}

// IsManifestFile reports whether a file name has a manifest extension and is not hidden.
func IsManifestFile(name string) bool {
	base := path.Base(filepath.ToSlash(name))
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := path.Ext(base)
	return slices.Contains(Extensions, ext)
}
