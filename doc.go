// Package promptcatalog catalogs prompt template definitions authored as YAML files and
// exposes each one as a callable, parameter-validated unit.
//
// The root package holds the data model (Definition, VariableSpec), the parameter Contract
// derived from a definition, the literal {name} placeholder Renderer, and the Service
// interface a host uses to list, describe, invoke and reload prompts. StructArgs turns tagged
// structs into invocation arguments, and TokenCounter estimates the size of a rendered prompt.
// Loading and hot reload live in package catalog; per-prompt invocation handles live in
// package registry.
package promptcatalog
