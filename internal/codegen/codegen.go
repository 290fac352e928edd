// Package codegen generates typed Go argument structs for catalog prompts.
package codegen

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/skosovsky/promptcatalog"
)

// Header is the generated-file marker recognized by Go tooling.
const Header = "Code generated by promptcatalog gen. DO NOT EDIT."

// Generate builds a file in package pkg with, per prompt, a Prompt<Name> constant and a
// <Name>Args struct whose Arguments method (promptcatalog.Arguer) produces the map accepted by Invoke.
// Prompts or parameters whose identifiers collide are rejected.
func Generate(pkg string, infos []promptcatalog.Info) (*jen.File, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment(Header)

	seen := make(map[string]string, len(infos))
	consts := make([]jen.Code, 0, len(infos))
	for _, info := range infos {
		id := Identifier(info.Name)
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("codegen: prompts %q and %q both map to %s", prev, info.Name, id)
		}
		seen[id] = info.Name
		consts = append(consts, jen.Id("Prompt"+id).Op("=").Lit(info.Name))
	}
	if len(consts) > 0 {
		f.Comment("Prompt names.")
		f.Const().Defs(consts...)
	}

	for _, info := range infos {
		if err := genArgs(f, info); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Write renders Generate's output to w.
func Write(w io.Writer, pkg string, infos []promptcatalog.Info) error {
	f, err := Generate(pkg, infos)
	if err != nil {
		return err
	}
	if err := f.Render(w); err != nil {
		return fmt.Errorf("codegen: render: %w", err)
	}
	return nil
}

func genArgs(f *jen.File, info promptcatalog.Info) error {
	typeName := Identifier(info.Name) + "Args"
	fields := make([]jen.Code, 0, len(info.Params))
	required := jen.Dict{}
	var optional []jen.Code
	seen := make(map[string]string, len(info.Params))
	for _, p := range info.Params {
		field := fieldName(p.Name)
		if prev, dup := seen[field]; dup {
			return fmt.Errorf("codegen: prompt %q: parameters %q and %q both map to %s", info.Name, prev, p.Name, field)
		}
		seen[field] = p.Name
		stmt := jen.Id(field).String().Tag(map[string]string{"prompt": p.Name})
		if c := paramComment(p); c != "" {
			stmt.Comment(c)
		}
		fields = append(fields, stmt)
		if p.Required {
			required[jen.Lit(p.Name)] = jen.Id("a").Dot(field)
			continue
		}
		optional = append(optional,
			jen.If(jen.Id("a").Dot(field).Op("!=").Lit("")).Block(
				jen.Id("args").Index(jen.Lit(p.Name)).Op("=").Id("a").Dot(field),
			),
		)
	}

	f.Commentf("%s holds the arguments of prompt %q.", typeName, info.Name)
	if info.Description != "" {
		f.Comment("")
		for _, line := range strings.Split(strings.TrimRight(info.Description, "\n"), "\n") {
			f.Comment(commentLine(line))
		}
	}
	f.Type().Id(typeName).Struct(fields...)

	body := []jen.Code{
		jen.Id("args").Op(":=").Map(jen.String()).String().Values(required),
	}
	body = append(body, optional...)
	body = append(body, jen.Return(jen.Id("args")))
	f.Comment("Arguments returns the invocation map. Optional fields are included only when non-empty.")
	f.Func().Params(jen.Id("a").Id(typeName)).Id(methodName).Params().Map(jen.String()).String().Block(body...)
	return nil
}

func paramComment(p promptcatalog.Param) string {
	var parts []string
	if p.Description != "" {
		parts = append(parts, commentLine(strings.Join(strings.Fields(p.Description), " ")))
	}
	if p.Required {
		parts = append(parts, "required")
	} else if p.Default != nil {
		parts = append(parts, fmt.Sprintf("default %q", *p.Default))
	}
	return strings.Join(parts, "; ")
}

// commentLine keeps text on one // line. jen emits text that already starts with a comment
// marker verbatim, so such text is indented by a space.
func commentLine(text string) string {
	text = strings.TrimRight(text, "\r")
	if strings.HasPrefix(text, "//") || strings.HasPrefix(text, "/*") {
		return " " + text
	}
	return text
}

// methodName is the generated method every Args struct carries.
const methodName = "Arguments"

// fieldName is Identifier, except that a parameter mapping to the method name gets an Arg suffix.
func fieldName(param string) string {
	id := Identifier(param)
	if id == methodName {
		return id + "Arg"
	}
	return id
}

// Identifier turns a prompt or parameter name into an exported Go identifier:
// code_review → CodeReview, agent.prod → AgentProd, 2fa → P2fa.
func Identifier(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	id := b.String()
	if id == "" {
		return "P"
	}
	if unicode.IsDigit([]rune(id)[0]) {
		return "P" + id
	}
	return id
}
