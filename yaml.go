package factmat

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlSchemaDoc mirrors the data model as a YAML document:
//
//	- name: Person
//	  namespace: com.example
//	  fields:
//	    - name: name
//	      type: string
//	      required: true
//	    - name: adult
//	      type: boolean
//	      default: false
//	    - name: home
//	      type: object
//	      ref: Address
//	    - name: scores
//	      type: list
//	      elem: integer
type yamlSchemaDoc struct {
	Name      string         `yaml:"name"`
	Namespace string         `yaml:"namespace"`
	Fields    []yamlFieldDoc `yaml:"fields"`
}

type yamlFieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
	Default  any    `yaml:"default"`
	Ref      string `yaml:"ref"`
	Elem     string `yaml:"elem"`
}

// ParseYAMLSchemas decodes a YAML list of schema documents into object
// schemas, applying the same default coercion the declarative text parser
// uses.
func ParseYAMLSchemas(data []byte) ([]*ObjectSchema, error) {
	var docs []yamlSchemaDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("factmat: yaml schemas: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("factmat: yaml schemas: no documents")
	}
	out := make([]*ObjectSchema, 0, len(docs))
	for _, doc := range docs {
		fields := make([]FieldSpec, 0, len(doc.Fields))
		for _, fd := range doc.Fields {
			spec, err := yamlFieldSpec(doc.Name, fd)
			if err != nil {
				return nil, err
			}
			fields = append(fields, spec)
		}
		s, err := NewObjectSchema(doc.Name, doc.Namespace, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func yamlFieldSpec(schema string, fd yamlFieldDoc) (FieldSpec, error) {
	spec := FieldSpec{Name: fd.Name, Required: fd.Required, Ref: fd.Ref}
	ft, builtin := ParseFieldType(fd.Type)
	spec.Type = ft
	if !builtin && fd.Type != "object" && fd.Type != "" {
		// a non-builtin type name doubles as the reference
		spec.Ref = fd.Type
	}
	if spec.Type == TypeObject && spec.Ref == "" {
		return FieldSpec{}, fmt.Errorf("factmat: yaml schema %s: field %s: object field needs a ref", schema, fd.Name)
	}
	if fd.Elem != "" {
		if spec.Type != TypeList {
			return FieldSpec{}, fmt.Errorf("factmat: yaml schema %s: field %s: elem is only valid on list fields", schema, fd.Name)
		}
		et, ebuiltin := ParseFieldType(fd.Elem)
		elem := FieldSpec{Name: fd.Name, Type: et}
		if !ebuiltin {
			elem.Ref = fd.Elem
		}
		spec.Elem = &elem
	}
	if fd.Default != nil {
		switch spec.Type {
		case TypeObject, TypeList, TypeMap:
			return FieldSpec{}, fmt.Errorf("factmat: yaml schema %s: field %s: defaults are only supported on scalar fields", schema, fd.Name)
		}
		dv, err := coerceScalar(normalizeYAMLScalar(fd.Default), spec)
		if err != nil {
			return FieldSpec{}, fmt.Errorf("factmat: yaml schema %s: field %s: invalid default: %w", schema, fd.Name, err)
		}
		spec.Default = dv
	}
	return spec, nil
}

// normalizeYAMLScalar funnels yaml.v3's native scalar types through the
// same shapes the JSON decoder produces.
func normalizeYAMLScalar(v any) any {
	switch x := v.(type) {
	case int:
		return json.Number(fmt.Sprintf("%d", x))
	case int64:
		return json.Number(fmt.Sprintf("%d", x))
	case float64:
		return x
	default:
		return v
	}
}

// RegisterYAML parses YAML schema documents and registers each one.
// Registration is all-or-nothing: a parse error registers nothing.
func (r *Registry) RegisterYAML(data []byte) ([]*ObjectSchema, error) {
	schemas, err := ParseYAMLSchemas(data)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		if _, err := r.RegisterSchema(s); err != nil {
			return nil, err
		}
	}
	return schemas, nil
}
