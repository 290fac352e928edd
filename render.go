package promptcatalog

import (
	"regexp"
	"strings"
)

// Binding is one ordered substitution applied by Render.
type Binding struct {
	Name  string
	Value string
}

// placeholderPattern matches {identifier} spans. Used for metadata only; Render does not parse.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholder returns the literal placeholder spelling for name, e.g. "{user}".
func Placeholder(name string) string {
	return "{" + name + "}"
}

// Render substitutes bindings into template by literal text replacement.
//
// Bindings are applied in order, each replacing every occurrence of its placeholder in the
// text produced so far. A value is never rescanned for its own placeholder, but text introduced
// by an earlier binding is visible to later ones. Placeholders with no binding stay verbatim.
func Render(template string, bindings []Binding) string {
	out := template
	for _, b := range bindings {
		out = strings.ReplaceAll(out, Placeholder(b.Name), b.Value)
	}
	return out
}

// Placeholders lists the distinct {identifier} placeholders in template, in order of first appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
