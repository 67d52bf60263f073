// Package gen renders Go struct source for schema-derived types. It is
// used two ways: ahead-of-time code generation for schemas known at build
// time, and as the diagnostic body of materialization errors so a
// rejected type can be inspected exactly as derived.
//
// The package deliberately defines its own input types instead of
// importing the root package, keeping the dependency direction one-way.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"
)

// FieldDef describes one struct field to render.
type FieldDef struct {
	GoName  string // exported Go field name
	GoType  string // rendered Go type, e.g. "int64", "[]string", "any"
	JSONTag string // json tag value (the schema field name)
}

// TypeDef describes one struct type to render.
type TypeDef struct {
	Name   string // Go type name
	Doc    string // optional one-line doc comment
	Fields []FieldDef
}

var structTmpl = template.Must(template.New("structs").Parse(`// Code generated by factmat gen. DO NOT EDIT.

package {{.Package}}
{{range .Types}}
{{if .Doc}}// {{.Doc}}
{{end}}type {{.Name}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`json:\"{{.JSONTag}}\"`" + `
{{- end}}
}
{{end}}`))

// RenderStructs renders the given type definitions as a Go source file.
// The output is gofmt-formatted when it parses; when it does not (for
// example a field name that is not a legal identifier), the raw rendering
// is returned together with the formatting error so callers can surface
// the offending source verbatim.
func RenderStructs(pkg string, defs []TypeDef) ([]byte, error) {
	if pkg == "" {
		pkg = "main"
	}
	var buf bytes.Buffer
	data := struct {
		Package string
		Types   []TypeDef
	}{Package: pkg, Types: defs}
	if err := structTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("gen: render: %w", err)
	}
	src := buf.Bytes()
	formatted, err := format.Source(src)
	if err != nil {
		return src, fmt.Errorf("gen: format: %w", err)
	}
	return formatted, nil
}

// RenderStruct renders a single type without the file preamble, for use
// in error diagnostics.
func RenderStruct(def TypeDef) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "type %s struct {\n", def.Name)
	for _, f := range def.Fields {
		fmt.Fprintf(&buf, "\t%s %s `json:%q`\n", f.GoName, f.GoType, f.JSONTag)
	}
	buf.WriteString("}\n")
	return buf.String()
}
