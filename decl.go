package factmat

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecl parses declarative schema text into object schemas. The
// grammar is newline-insensitive, so the verbose multi-line form and the
// single-line form tokenize identically:
//
//	package com.example
//
//	declare Person
//	    name!  : String
//	    age    : Integer
//	    adult  : Boolean = false
//	    home   : Address
//	    scores : List[Integer]
//	end
//
//	declare Address street : String city : String end
//
// A trailing "!" marks a field required. Type names that are not built in
// denote object references and resolve lazily at materialization time.
func ParseDecl(text string) ([]*ObjectSchema, error) {
	toks, err := lexDecl(text)
	if err != nil {
		return nil, err
	}
	p := &declParser{toks: toks}
	return p.parseFile()
}

// ---- lexer ----

type declTokKind int

const (
	tokIdent declTokKind = iota
	tokNumber
	tokString
	tokPunct
	tokEOF
)

type declTok struct {
	kind declTokKind
	text string
	line int
}

func lexDecl(text string) ([]declTok, error) {
	var toks []declTok
	line := 1
	rs := []rune(text)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == '/' && i+1 < len(rs) && rs[i+1] == '/', r == '#':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '"':
			j := i + 1
			var b strings.Builder
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					if j+1 >= len(rs) {
						return nil, fmt.Errorf("factmat: line %d: unterminated string literal", line)
					}
					j++
					switch rs[j] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					case 'r':
						b.WriteByte('\r')
					case '"', '\\':
						b.WriteRune(rs[j])
					default:
						return nil, fmt.Errorf("factmat: line %d: unknown escape \\%c in string literal", line, rs[j])
					}
					j++
					continue
				}
				b.WriteRune(rs[j])
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("factmat: line %d: unterminated string literal", line)
			}
			toks = append(toks, declTok{tokString, b.String(), line})
			i = j + 1
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			toks = append(toks, declTok{tokIdent, string(rs[i:j]), line})
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.' || rs[j] == 'e' || rs[j] == 'E' || rs[j] == '+' || rs[j] == '-') {
				j++
			}
			toks = append(toks, declTok{tokNumber, string(rs[i:j]), line})
			i = j
		case strings.ContainsRune(":=!<>[],", r):
			toks = append(toks, declTok{tokPunct, string(r), line})
			i++
		default:
			return nil, fmt.Errorf("factmat: line %d: unexpected character %q", line, r)
		}
	}
	toks = append(toks, declTok{kind: tokEOF, line: line})
	return toks, nil
}

// ---- parser ----

type declParser struct {
	toks []declTok
	pos  int
	ns   string
}

func (p *declParser) peek() declTok { return p.toks[p.pos] }

func (p *declParser) next() declTok {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *declParser) expectPunct(s string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != s {
		return fmt.Errorf("factmat: line %d: expected %q, got %q", t.line, s, t.text)
	}
	return nil
}

func (p *declParser) parseFile() ([]*ObjectSchema, error) {
	var out []*ObjectSchema
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			if len(out) == 0 {
				return nil, fmt.Errorf("factmat: no declare blocks found")
			}
			return out, nil
		case t.kind == tokIdent && t.text == "package":
			p.next()
			nt := p.next()
			if nt.kind != tokIdent {
				return nil, fmt.Errorf("factmat: line %d: expected namespace after package", nt.line)
			}
			p.ns = nt.text
		case t.kind == tokIdent && t.text == "declare":
			s, err := p.parseDeclare()
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		default:
			return nil, fmt.Errorf("factmat: line %d: expected declare, got %q", t.line, t.text)
		}
	}
}

func (p *declParser) parseDeclare() (*ObjectSchema, error) {
	p.next() // "declare"
	nameTok := p.next()
	if nameTok.kind != tokIdent {
		return nil, fmt.Errorf("factmat: line %d: expected schema name, got %q", nameTok.line, nameTok.text)
	}
	var fields []FieldSpec
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return nil, fmt.Errorf("factmat: line %d: declare %s: missing end", t.line, nameTok.text)
		}
		if t.kind == tokIdent && t.text == "end" {
			p.next()
			return NewObjectSchema(nameTok.text, p.ns, fields)
		}
		f, err := p.parseField(nameTok.text)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
}

func (p *declParser) parseField(schema string) (FieldSpec, error) {
	nameTok := p.next()
	if nameTok.kind != tokIdent {
		return FieldSpec{}, fmt.Errorf("factmat: line %d: declare %s: expected field name, got %q", nameTok.line, schema, nameTok.text)
	}
	f := FieldSpec{Name: nameTok.text}
	if t := p.peek(); t.kind == tokPunct && t.text == "!" {
		p.next()
		f.Required = true
	}
	if err := p.expectPunct(":"); err != nil {
		return FieldSpec{}, err
	}
	var err error
	f, err = p.parseType(f)
	if err != nil {
		return FieldSpec{}, err
	}
	if t := p.peek(); t.kind == tokPunct && t.text == "=" {
		p.next()
		if err := p.parseDefault(&f); err != nil {
			return FieldSpec{}, err
		}
	}
	return f, nil
}

// parseType fills Type/Ref/Elem from a type expression: a bare identifier,
// or List with a bracketed element type (both List[T] and List<T> forms).
func (p *declParser) parseType(f FieldSpec) (FieldSpec, error) {
	t := p.next()
	if t.kind != tokIdent {
		return f, fmt.Errorf("factmat: line %d: expected type name, got %q", t.line, t.text)
	}
	ft, builtin := ParseFieldType(t.text)
	f.Type = ft
	if !builtin {
		f.Ref = t.text
		return f, nil
	}
	if ft != TypeList {
		return f, nil
	}
	open := p.peek()
	if open.kind != tokPunct || (open.text != "[" && open.text != "<") {
		return f, nil // untyped list
	}
	p.next()
	elem, err := p.parseType(FieldSpec{Name: f.Name})
	if err != nil {
		return f, err
	}
	close := p.next()
	want := "]"
	if open.text == "<" {
		want = ">"
	}
	if close.kind != tokPunct || close.text != want {
		return f, fmt.Errorf("factmat: line %d: expected %q closing element type, got %q", close.line, want, close.text)
	}
	f.Elem = &elem
	return f, nil
}

func (p *declParser) parseDefault(f *FieldSpec) error {
	t := p.next()
	var raw any
	switch {
	case t.kind == tokString:
		raw = t.text
	case t.kind == tokNumber:
		raw = jsonNumber(t.text)
	case t.kind == tokIdent && (t.text == "true" || t.text == "false"):
		raw = t.text == "true"
	default:
		return fmt.Errorf("factmat: line %d: field %s: invalid default literal %q", t.line, f.Name, t.text)
	}
	switch f.Type {
	case TypeObject, TypeList, TypeMap:
		return fmt.Errorf("factmat: line %d: field %s: defaults are only supported on scalar fields", t.line, f.Name)
	}
	dv, err := coerceScalar(raw, *f)
	if err != nil {
		return fmt.Errorf("factmat: line %d: field %s: default %s is not a valid %s", t.line, f.Name, strconv.Quote(t.text), f.Type)
	}
	f.Default = dv
	return nil
}
