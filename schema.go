package factmat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FieldType enumerates the logical field types a schema may declare.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeLong
	TypeDouble
	TypeBoolean
	TypeObject // reference to another registered schema
	TypeList
	TypeMap
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeLong:
		return "Long"
	case TypeDouble:
		return "Double"
	case TypeBoolean:
		return "Boolean"
	case TypeObject:
		return "Object"
	case TypeList:
		return "List"
	case TypeMap:
		return "Map"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// ParseFieldType maps a declarative type name to a FieldType. Unrecognized
// names are not an error at this layer; they denote object references and
// are resolved against the registry at materialization time.
func ParseFieldType(s string) (FieldType, bool) {
	switch strings.ToLower(s) {
	case "string", "str":
		return TypeString, true
	case "integer", "int":
		return TypeInteger, true
	case "long":
		return TypeLong, true
	case "double", "float", "number":
		return TypeDouble, true
	case "boolean", "bool":
		return TypeBoolean, true
	case "list", "collection":
		return TypeList, true
	case "map":
		return TypeMap, true
	default:
		return TypeObject, false
	}
}

// FieldSpec describes one schema field.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Required bool
	// Default holds the already-coerced default value, nil when absent.
	Default any
	// Ref names the referenced schema for TypeObject fields. The name must
	// resolve in the registry by materialization time, not definition time,
	// so forward references stay legal.
	Ref string
	// Elem optionally types the elements of a TypeList field.
	Elem *FieldSpec
}

// typeText renders the declarative form of the field's type.
func (f FieldSpec) typeText() string {
	switch f.Type {
	case TypeObject:
		return f.Ref
	case TypeList:
		if f.Elem != nil {
			return "List[" + f.Elem.typeText() + "]"
		}
		return "List"
	default:
		return f.Type.String()
	}
}

// ObjectSchema is a named, ordered field specification.
type ObjectSchema struct {
	Name      string
	Namespace string
	Fields    []FieldSpec

	index map[string]int
}

// NewObjectSchema validates field-name uniqueness and builds the lookup
// index. The schema is immutable once constructed.
func NewObjectSchema(name, namespace string, fields []FieldSpec) (*ObjectSchema, error) {
	if name == "" {
		return nil, fmt.Errorf("factmat: schema name must not be empty")
	}
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("factmat: schema %q: field %d has empty name", name, i)
		}
		if _, dup := idx[f.Name]; dup {
			return nil, fmt.Errorf("factmat: schema %q: duplicate field %q", name, f.Name)
		}
		idx[f.Name] = i
	}
	return &ObjectSchema{Name: name, Namespace: namespace, Fields: fields, index: idx}, nil
}

// Field returns the spec for the named field.
func (s *ObjectSchema) Field(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.Fields[i], true
}

// FieldNames returns field names in declaration order.
func (s *ObjectSchema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// RequiredFields returns the names of required fields in declaration order.
func (s *ObjectSchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// DeclarativeText renders the schema back to its canonical declarative
// form. The rendering is deterministic; Hash is computed over it.
func (s *ObjectSchema) DeclarativeText() string {
	b := &strings.Builder{}
	b.WriteString("declare ")
	b.WriteString(s.Name)
	b.WriteByte('\n')
	for _, f := range s.Fields {
		b.WriteString("    ")
		b.WriteString(f.Name)
		if f.Required {
			b.WriteByte('!')
		}
		b.WriteString(" : ")
		b.WriteString(f.typeText())
		if f.Default != nil {
			b.WriteString(" = ")
			b.WriteString(defaultLiteral(f.Default))
		}
		b.WriteByte('\n')
	}
	b.WriteString("end\n")
	return b.String()
}

// Hash returns the schema's content identity. Two schemas sharing a name
// but differing in any field hash differently, which is what invalidates
// cached compiled types across schema revisions.
func (s *ObjectSchema) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(s.Namespace)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(s.DeclarativeText())
	return d.Sum64()
}

func defaultLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
