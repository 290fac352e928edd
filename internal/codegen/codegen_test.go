package codegen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/skosovsky/promptcatalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleInfos() []promptcatalog.Info {
	return []promptcatalog.Info{
		{
			Name:        "code_review",
			Description: "Reviews code",
			Params: []promptcatalog.Param{
				{Name: "code", Description: "Source code", Required: true},
				{Name: "language", Required: true},
				{Name: "tone", Default: strPtr("constructive")},
			},
		},
		{Name: "plain"},
	}
}

func TestIdentifier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"greet", "Greet"},
		{"code_review", "CodeReview"},
		{"agent.prod", "AgentProd"},
		{"kebab-case-name", "KebabCaseName"},
		{"2fa", "P2fa"},
		{"__", "P"},
		{"already", "Already"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Identifier(tt.in))
		})
	}
}

func TestWrite_ProducesValidGo(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "prompts", sampleInfos()))
	src := buf.String()

	typeCheck(t, src)

	assert.Contains(t, src, "// "+Header)
	assert.Contains(t, src, "package prompts")
	assert.Contains(t, src, `PromptCodeReview = "code_review"`)
	assert.Contains(t, src, `PromptPlain      = "plain"`)
	assert.Contains(t, src, "type CodeReviewArgs struct")
	assert.Contains(t, src, "Code     string `prompt:\"code\"`")
	assert.Contains(t, src, "default \"constructive\"")
	assert.Contains(t, src, "func (a CodeReviewArgs) Arguments() map[string]string")
	assert.Contains(t, src, `if a.Tone != "" {`)
	assert.Contains(t, src, `args["tone"] = a.Tone`)
	assert.Contains(t, src, "type PlainArgs struct{}")
}

// typeCheck parses and type-checks generated source, which imports nothing.
func typeCheck(t *testing.T, src string) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "gen.go", src, parser.ParseComments)
	require.NoError(t, err, src)
	_, err = (&types.Config{}).Check("gen", fset, []*ast.File{file}, nil)
	require.NoError(t, err, src)
}

func TestWrite_ArgumentsParameterDoesNotClashWithMethod(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "prompts", []promptcatalog.Info{{
		Name:   "greet",
		Params: []promptcatalog.Param{{Name: "arguments", Required: true}},
	}}))
	src := buf.String()
	typeCheck(t, src)
	assert.Contains(t, src, "ArgumentsArg string `prompt:\"arguments\"`")
	assert.Contains(t, src, `"arguments": a.ArgumentsArg`)
}

func TestWrite_MultilineDescriptionWithCommentTerminator(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "prompts", []promptcatalog.Info{{
		Name:        "tricky",
		Description: "Ends a block comment */ here\nand continues /* there\n/* opens a line",
		Params: []promptcatalog.Param{{
			Name:        "code",
			Description: "multi\nline */ text",
		}},
	}}))
	src := buf.String()
	typeCheck(t, src)
	assert.Contains(t, src, "// Ends a block comment */ here")
	assert.Contains(t, src, "// and continues /* there")
	assert.Contains(t, src, "/* opens a line")
}

func TestGenerate_RejectsCollisions(t *testing.T) {
	t.Parallel()
	_, err := Generate("p", []promptcatalog.Info{{Name: "a_b"}, {Name: "a-b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AB")

	_, err = Generate("p", []promptcatalog.Info{{
		Name:   "x",
		Params: []promptcatalog.Param{{Name: "tone"}, {Name: "Tone"}},
	}})
	require.Error(t, err)
}

func TestGenerate_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "empty", nil))
	assert.Contains(t, buf.String(), "package empty")
	assert.NotContains(t, buf.String(), "const")
}
