package factmat

import (
	"fmt"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/ruleweave/factmat/internal/gen"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// TypeCache maps schema names to struct types built for them, together
// with the schema content hash the type was built from. A lookup whose
// stored hash differs from the live schema's hash misses, so re-registering
// a schema under the same name can never resurrect a stale type.
type TypeCache struct {
	mu    sync.RWMutex
	types map[string]cachedType
}

type cachedType struct {
	typ   reflect.Type
	index map[string]int // schema field name -> struct field index
	hash  uint64
}

// NewTypeCache returns an empty cache. One cache may be shared across
// materializers; all access is internally synchronized.
func NewTypeCache() *TypeCache {
	return &TypeCache{types: make(map[string]cachedType)}
}

func (c *TypeCache) lookup(name string, hash uint64) (cachedType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ct, ok := c.types[name]
	if !ok || ct.hash != hash {
		return cachedType{}, false
	}
	return ct, true
}

func (c *TypeCache) store(name string, ct cachedType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[name] = ct
}

// Invalidate drops the cached type for a schema name.
func (c *TypeCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.types, name)
}

// Len reports the number of cached types.
func (c *TypeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// StructMaterializer builds one concrete struct type per schema at
// runtime and instantiates it from coerced field maps. Types are cached
// by schema identity; building a type for schema A is never observably
// affected by concurrent builds for schema B, and rebuilding the same
// schema is idempotent.
type StructMaterializer struct {
	cache  *TypeCache
	coerce *Coercer
	logger zerolog.Logger

	// unavailable forces ErrStrategyUnavailable, modeling runtimes where
	// dynamic type construction cannot run. Exercised by the facade
	// fallback tests.
	unavailable bool
}

// NewStructMaterializer wires the struct strategy to a type cache and a
// coercer. A nil cache gets a private one.
func NewStructMaterializer(cache *TypeCache, c *Coercer, logger zerolog.Logger) *StructMaterializer {
	if cache == nil {
		cache = NewTypeCache()
	}
	return &StructMaterializer{cache: cache, coerce: c, logger: logger}
}

// Materialize instantiates the schema's struct type and populates it from
// the coerced field map. Failures carry the derived source and
// diagnostics; they are never silently downgraded to the map strategy.
func (m *StructMaterializer) Materialize(schema *ObjectSchema, fields map[string]any) (Fact, error) {
	if m.unavailable {
		return nil, ErrStrategyUnavailable
	}
	ct, err := m.typeFor(schema)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(ct.typ)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  ptr.Interface(),
	})
	if err != nil {
		return nil, &MaterializationError{Schema: schema.Name, Source: renderSchemaSource(schema), Cause: err}
	}
	if err := dec.Decode(fields); err != nil {
		return nil, &MaterializationError{
			Schema:      schema.Name,
			Source:      renderSchemaSource(schema),
			Diagnostics: []string{err.Error()},
			Cause:       err,
		}
	}
	return &structFact{schema: schema, coerce: m.coerce, v: ptr.Elem(), index: ct.index}, nil
}

// typeFor resolves the struct type for schema, rebuilding on a content
// change. The build happens outside the cache lock; identical concurrent
// builds converge on the same type because reflect.StructOf canonicalizes
// identical layouts.
func (m *StructMaterializer) typeFor(schema *ObjectSchema) (cachedType, error) {
	h := schema.Hash()
	if ct, ok := m.cache.lookup(schema.Name, h); ok {
		return ct, nil
	}
	typ, index, err := buildStructType(schema)
	if err != nil {
		return cachedType{}, err
	}
	ct := cachedType{typ: typ, index: index, hash: h}
	m.cache.store(schema.Name, ct)
	m.logger.Debug().Str("schema", schema.Name).Uint64("hash", h).Msg("struct type built")
	return ct, nil
}

func buildStructType(schema *ObjectSchema) (typ reflect.Type, index map[string]int, err error) {
	sfs := make([]reflect.StructField, 0, len(schema.Fields))
	index = make(map[string]int, len(schema.Fields))
	for i, f := range schema.Fields {
		goName, nerr := exportName(f.Name)
		if nerr != nil {
			return nil, nil, &MaterializationError{
				Schema:      schema.Name,
				Field:       f.Name,
				Source:      renderSchemaSource(schema),
				Diagnostics: []string{nerr.Error()},
				Cause:       nerr,
			}
		}
		sfs = append(sfs, reflect.StructField{
			Name: goName,
			Type: fieldGoType(f),
			Tag:  reflect.StructTag(fmt.Sprintf(`json:%q`, f.Name)),
		})
		index[f.Name] = i
	}
	defer func() {
		if r := recover(); r != nil {
			typ, index = nil, nil
			err = &MaterializationError{
				Schema:      schema.Name,
				Source:      renderSchemaSource(schema),
				Diagnostics: []string{fmt.Sprint(r)},
				Cause:       fmt.Errorf("building struct type: %v", r),
			}
		}
	}()
	typ = reflect.StructOf(sfs)
	return typ, index, nil
}

// fieldGoType maps a field's logical type onto the struct field type.
// Lists stay []any regardless of element hint so that Get/Set round-trip
// the same representation the map strategy uses.
func fieldGoType(f FieldSpec) reflect.Type {
	switch f.Type {
	case TypeString:
		return reflect.TypeOf("")
	case TypeInteger, TypeLong:
		return reflect.TypeOf(int64(0))
	case TypeDouble:
		return reflect.TypeOf(float64(0))
	case TypeBoolean:
		return reflect.TypeOf(false)
	case TypeList:
		return reflect.TypeOf([]any(nil))
	case TypeMap:
		return reflect.TypeOf(map[string]any(nil))
	default: // object reference; concrete fact type is dynamic
		return anyType
	}
}

// exportName converts a schema field name into an exported Go identifier.
// The first rune must be a letter; the rest must be letters, digits, or
// underscores.
func exportName(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty field name")
	}
	first, size := utf8.DecodeRuneInString(field)
	if !unicode.IsLetter(first) {
		return "", fmt.Errorf("field name %q cannot become an exported identifier", field)
	}
	for _, r := range field[size:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", fmt.Errorf("field name %q contains invalid identifier rune %q", field, r)
		}
	}
	return string(unicode.ToUpper(first)) + field[size:], nil
}

// renderSchemaSource derives the diagnostic Go source for a schema. Field
// names that cannot become identifiers are rendered verbatim so the
// offending name is visible in the output.
func renderSchemaSource(schema *ObjectSchema) string {
	def := gen.TypeDef{Name: schema.Name}
	for _, f := range schema.Fields {
		goName, err := exportName(f.Name)
		if err != nil {
			goName = f.Name
		}
		def.Fields = append(def.Fields, gen.FieldDef{
			GoName:  goName,
			GoType:  goTypeName(f),
			JSONTag: f.Name,
		})
	}
	return gen.RenderStruct(def)
}

func goTypeName(f FieldSpec) string {
	switch f.Type {
	case TypeString:
		return "string"
	case TypeInteger, TypeLong:
		return "int64"
	case TypeDouble:
		return "float64"
	case TypeBoolean:
		return "bool"
	case TypeList:
		return "[]any"
	case TypeMap:
		return "map[string]any"
	default:
		return "any"
	}
}

// structFact adapts a struct instance to the Fact contract via
// reflection.
type structFact struct {
	schema *ObjectSchema
	coerce *Coercer
	v      reflect.Value // addressable struct value
	index  map[string]int
}

func (f *structFact) SchemaName() string { return f.schema.Name }

func (f *structFact) FieldNames() []string { return f.schema.FieldNames() }

func (f *structFact) Get(name string) (any, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, &UnsupportedOperationError{Schema: f.schema.Name, Op: "get " + name}
	}
	fv := f.v.Field(i)
	if fv.Kind() == reflect.Interface && fv.IsNil() {
		return nil, nil
	}
	return fv.Interface(), nil
}

func (f *structFact) Set(name string, v any) error {
	i, ok := f.index[name]
	if !ok {
		return &UnsupportedOperationError{Schema: f.schema.Name, Op: "set " + name}
	}
	spec, _ := f.schema.Field(name)
	cv, err := f.coerce.Coerce(v, spec)
	if err != nil {
		return err
	}
	fv := f.v.Field(i)
	if cv == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(cv)
	if !rv.Type().AssignableTo(fv.Type()) {
		return &MaterializationError{
			Schema: f.schema.Name,
			Field:  name,
			Cause:  fmt.Errorf("coerced %T is not assignable to %s", cv, fv.Type()),
		}
	}
	fv.Set(rv)
	return nil
}

func (f *structFact) Equal(other Fact) bool { return factEqual(f, other) }

func (f *structFact) Hash() uint64 { return factHash(f) }

func (f *structFact) String() string { return factString(f) }
