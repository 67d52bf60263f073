package factmat

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fact is a materialized object the rule engine can pattern-match
// against. Both materialization strategies produce values satisfying this
// contract, and equality/hash are defined over it so facts from different
// strategies with the same schema and field values compare equal.
type Fact interface {
	// SchemaName identifies the schema the fact was materialized from.
	SchemaName() string
	// FieldNames returns field names in schema-declared order.
	FieldNames() []string
	// Get reads a field value. Unknown fields yield
	// *UnsupportedOperationError. An unset optional field resolves to its
	// declared default when one exists; without a default the value is
	// strategy-dependent: map-backed facts return nil, struct-backed facts
	// return the field's Go zero value. Callers mixing strategies should
	// not rely on unset optionals comparing equal across them.
	Get(name string) (any, error)
	// Set coerces v to the field's declared type and stores it.
	Set(name string, v any) error
	// Equal reports schema-name equality plus field-for-field value equality.
	Equal(other Fact) bool
	// Hash combines the schema name with a canonical rendering of all
	// field values; equal facts hash equal.
	Hash() uint64
	// String renders SchemaName{field1=v1, field2=v2, ...} in schema order.
	String() string
}

// MapMaterializer backs facts with an ordered field map. It has no
// compilation step, is always available, and serves as the fallback when
// the struct strategy cannot run.
type MapMaterializer struct {
	coerce *Coercer
}

// NewMapMaterializer builds the map-backed strategy around a Coercer.
func NewMapMaterializer(c *Coercer) *MapMaterializer { return &MapMaterializer{coerce: c} }

// Materialize wraps an already-coerced field map. Values for fields the
// schema does not declare are dropped.
func (m *MapMaterializer) Materialize(schema *ObjectSchema, fields map[string]any) (Fact, error) {
	values := make(map[string]any, len(fields))
	for name, v := range fields {
		if _, ok := schema.Field(name); ok {
			values[name] = v
		}
	}
	return &mapFact{schema: schema, coerce: m.coerce, values: values}, nil
}

type mapFact struct {
	schema *ObjectSchema
	coerce *Coercer
	values map[string]any
}

func (f *mapFact) SchemaName() string { return f.schema.Name }

func (f *mapFact) FieldNames() []string { return f.schema.FieldNames() }

func (f *mapFact) Get(name string) (any, error) {
	if _, ok := f.schema.Field(name); !ok {
		return nil, &UnsupportedOperationError{Schema: f.schema.Name, Op: "get " + name}
	}
	return f.values[name], nil
}

func (f *mapFact) Set(name string, v any) error {
	spec, ok := f.schema.Field(name)
	if !ok {
		return &UnsupportedOperationError{Schema: f.schema.Name, Op: "set " + name}
	}
	cv, err := f.coerce.Coerce(v, spec)
	if err != nil {
		return err
	}
	f.values[name] = cv
	return nil
}

func (f *mapFact) Equal(other Fact) bool { return factEqual(f, other) }

func (f *mapFact) Hash() uint64 { return factHash(f) }

func (f *mapFact) String() string { return factString(f) }

// ---- shared fact semantics ----

func factString(f Fact) string {
	b := &strings.Builder{}
	b.WriteString(f.SchemaName())
	b.WriteByte('{')
	for i, name := range f.FieldNames() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		v, _ := f.Get(name)
		writeCanonical(b, v)
	}
	b.WriteByte('}')
	return b.String()
}

func factEqual(a, b Fact) bool {
	if b == nil {
		return false
	}
	if a.SchemaName() != b.SchemaName() {
		return false
	}
	an, bn := a.FieldNames(), b.FieldNames()
	if len(an) != len(bn) {
		return false
	}
	for _, name := range an {
		av, aerr := a.Get(name)
		bv, berr := b.Get(name)
		if aerr != nil || berr != nil {
			return false
		}
		if !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func factHash(f Fact) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(f.SchemaName())
	b := &strings.Builder{}
	for _, name := range f.FieldNames() {
		b.Reset()
		v, _ := f.Get(name)
		writeCanonical(b, v)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(name)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(b.String())
	}
	return d.Sum64()
}

// valueEqual compares coerced field values, recursing through lists and
// maps and delegating nested facts to their own Equal.
func valueEqual(a, b any) bool {
	if af, ok := a.(Fact); ok {
		bf, ok := b.(Fact)
		return ok && af.Equal(bf)
	}
	if al, ok := a.([]any); ok {
		bl, ok := b.([]any)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !valueEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if am, ok := a.(map[string]any); ok {
		bm, ok := b.(map[string]any)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !valueEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// writeCanonical renders v deterministically: map keys sorted, nested
// facts via their String form. Hash and String both rely on it so equal
// facts render and hash identically.
func writeCanonical(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case Fact:
		b.WriteString(x.String())
	case string:
		b.WriteString(x)
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case []any:
		b.WriteByte('[')
		for i, it := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeCanonical(b, it)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteByte('=')
			writeCanonical(b, x[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%v", x)
	}
}
