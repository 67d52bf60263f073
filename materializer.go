package factmat

import (
	"bytes"
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Strategy selects how facts are backed.
type Strategy int

const (
	// StrategyAuto prefers the struct strategy and falls back to the map
	// strategy only when struct building is unavailable in this runtime.
	StrategyAuto Strategy = iota
	// StrategyStruct uses runtime-built struct types exclusively.
	StrategyStruct
	// StrategyMap uses field-map-backed facts exclusively.
	StrategyMap
)

// DefaultDiscriminatorKey is the JSON key naming an element's schema.
const DefaultDiscriminatorKey = "_type"

// Option configures a Materializer.
type Option func(*Materializer)

// WithStrategy sets the strategy preference.
func WithStrategy(s Strategy) Option { return func(m *Materializer) { m.strategy = s } }

// WithLogger installs a logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(m *Materializer) { m.logger = l } }

// WithDiscriminatorKey overrides the "_type" discriminator key.
func WithDiscriminatorKey(key string) Option { return func(m *Materializer) { m.discKey = key } }

// WithTypeCache shares a struct type cache across materializers.
func WithTypeCache(c *TypeCache) Option { return func(m *Materializer) { m.cache = c } }

// withStructUnavailable models a runtime without dynamic type
// construction; used by fallback tests.
func withStructUnavailable() Option { return func(m *Materializer) { m.structUnavailable = true } }

// Materializer is the single entry point for turning JSON facts into
// materialized objects. It validates required fields against the
// registry, coerces each field, recurses into nested object references,
// and dispatches to a materialization strategy.
type Materializer struct {
	reg     *Registry
	coercer *Coercer
	structs *StructMaterializer
	maps    *MapMaterializer

	cache             *TypeCache
	strategy          Strategy
	discKey           string
	logger            zerolog.Logger
	structUnavailable bool
}

// NewMaterializer builds a facade over the given registry.
func NewMaterializer(reg *Registry, opts ...Option) *Materializer {
	m := &Materializer{
		reg:      reg,
		strategy: StrategyAuto,
		discKey:  DefaultDiscriminatorKey,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NewTypeCache()
	}
	m.coercer = &Coercer{registry: reg, materialize: m.materializeSchema}
	m.structs = NewStructMaterializer(m.cache, m.coercer, m.logger)
	m.structs.unavailable = m.structUnavailable
	m.maps = NewMapMaterializer(m.coercer)
	return m
}

// Materialize produces a single fact for the named schema from a generic
// field map.
func (m *Materializer) Materialize(schemaName string, fields map[string]any) (Fact, error) {
	schema, ok := m.reg.Schema(schemaName)
	if !ok {
		return nil, &SchemaNotFoundError{Name: schemaName}
	}
	return m.materializeSchema(schema, fields)
}

// FromJSON materializes one or more facts of the named schema from JSON
// text: a single object or an array of objects. Array elements fail
// independently; successfully materialized elements are returned together
// with a BatchError covering the failed positions. An empty array yields
// an empty result and no error.
func (m *Materializer) FromJSON(data []byte, schemaName string) ([]Fact, error) {
	schema, ok := m.reg.Schema(schemaName)
	if !ok {
		return nil, &SchemaNotFoundError{Name: schemaName}
	}
	elems, err := decodeElements(data)
	if err != nil {
		return nil, err
	}
	return m.materializeBatch(elems, func(el map[string]any) (*ObjectSchema, error) {
		return schema, nil
	})
}

// FromJSONAutoDetect materializes facts whose schema is named by each
// element's discriminator key. Elements without a discriminator fail with
// SchemaNotFoundError at their position.
func (m *Materializer) FromJSONAutoDetect(data []byte) ([]Fact, error) {
	elems, err := decodeElements(data)
	if err != nil {
		return nil, err
	}
	return m.materializeBatch(elems, func(el map[string]any) (*ObjectSchema, error) {
		name, ok := el[m.discKey].(string)
		if !ok || name == "" {
			return nil, &SchemaNotFoundError{Key: m.discKey}
		}
		schema, found := m.reg.Schema(name)
		if !found {
			return nil, &SchemaNotFoundError{Name: name}
		}
		return schema, nil
	})
}

func (m *Materializer) materializeBatch(elems []any, resolve func(map[string]any) (*ObjectSchema, error)) ([]Fact, error) {
	var facts []Fact
	var batch BatchError
	for i, el := range elems {
		obj, ok := el.(map[string]any)
		if !ok {
			batch = append(batch, ElementError{Index: i, Err: fmt.Errorf("factmat: element is not a JSON object (%T)", el)})
			continue
		}
		schema, err := resolve(obj)
		if err != nil {
			batch = append(batch, ElementError{Index: i, Err: err})
			continue
		}
		f, err := m.materializeSchema(schema, obj)
		if err != nil {
			batch = append(batch, ElementError{Index: i, Err: err})
			continue
		}
		facts = append(facts, f)
	}
	if len(batch) > 0 {
		return facts, batch
	}
	return facts, nil
}

// materializeSchema is the per-element pipeline: strip the discriminator,
// coerce declared fields (unknown input keys are ignored), enumerate all
// missing required fields, then dispatch to a strategy. Coercion errors
// always propagate; only environment-level strategy unavailability
// triggers the map fallback.
func (m *Materializer) materializeSchema(schema *ObjectSchema, raw map[string]any) (Fact, error) {
	coerced := make(map[string]any, len(schema.Fields))
	var missing []string
	for _, spec := range schema.Fields {
		v, present := raw[spec.Name]
		if spec.Name == m.discKey {
			present = false
		}
		if !present {
			v = nil
		}
		cv, err := m.coercer.Coerce(v, spec)
		if err != nil {
			return nil, err
		}
		if cv == nil {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		coerced[spec.Name] = cv
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Schema: schema.Name, Missing: missing}
	}
	switch m.strategy {
	case StrategyMap:
		return m.maps.Materialize(schema, coerced)
	case StrategyStruct:
		return m.structs.Materialize(schema, coerced)
	default:
		f, err := m.structs.Materialize(schema, coerced)
		if errors.Is(err, ErrStrategyUnavailable) {
			m.logger.Debug().Str("schema", schema.Name).Msg("struct strategy unavailable, using map facts")
			return m.maps.Materialize(schema, coerced)
		}
		return f, err
	}
}

// decodeElements parses JSON text into its top-level elements: an array
// yields its members (an empty array yields none), an object yields
// itself.
func decodeElements(data []byte) ([]any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("factmat: invalid JSON input: %w", err)
	}
	switch x := v.(type) {
	case []any:
		return x, nil
	case map[string]any:
		return []any{x}, nil
	default:
		return nil, fmt.Errorf("factmat: top-level JSON must be an object or an array, got %T", v)
	}
}
