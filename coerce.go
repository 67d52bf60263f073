package factmat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// jsonNumber keeps number handling uniform: goccy/go-json aliases its
// Number type to encoding/json.Number, so one switch arm covers both
// decoders.
func jsonNumber(s string) json.Number { return json.Number(s) }

// Coercer converts loosely-typed input values into a field's declared
// type. Object-reference fields recurse through materialize, which the
// Materializer wires to itself at construction time.
type Coercer struct {
	registry    *Registry
	materialize func(schema *ObjectSchema, fields map[string]any) (Fact, error)
}

// Coerce applies the deterministic conversion rules for spec. A nil input
// resolves to the field default when present, else nil; the required check
// happens later at the facade so every missing field can be reported at
// once.
func (c *Coercer) Coerce(raw any, spec FieldSpec) (any, error) {
	if raw == nil {
		if spec.Default != nil {
			return spec.Default, nil
		}
		return nil, nil
	}
	switch spec.Type {
	case TypeString, TypeInteger, TypeLong, TypeDouble, TypeBoolean:
		return coerceScalar(raw, spec)
	case TypeList:
		return c.coerceList(raw, spec)
	case TypeMap:
		if m, ok := raw.(map[string]any); ok {
			return m, nil
		}
		return nil, &CoercionError{Field: spec.Name, Type: spec.Type, Value: raw}
	case TypeObject:
		return c.coerceObject(raw, spec)
	default:
		return nil, &CoercionError{Field: spec.Name, Type: spec.Type, Value: raw}
	}
}

// coerceList passes lists through and promotes a non-list value to a
// single-element list. The promotion is deliberate permissive behavior
// preserved for compatibility with existing producers. An element-type
// hint coerces each element in place.
func (c *Coercer) coerceList(raw any, spec FieldSpec) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}
	if spec.Elem == nil {
		return items, nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		es := *spec.Elem
		es.Name = fmt.Sprintf("%s[%d]", spec.Name, i)
		ev, err := c.Coerce(it, es)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

func (c *Coercer) coerceObject(raw any, spec FieldSpec) (any, error) {
	if f, ok := raw.(Fact); ok {
		if f.SchemaName() == spec.Ref {
			return f, nil
		}
		return nil, &CoercionError{
			Field: spec.Name, Type: spec.Type, Value: raw,
			Cause: fmt.Errorf("fact schema %q does not match reference %q", f.SchemaName(), spec.Ref),
		}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &CoercionError{Field: spec.Name, Type: spec.Type, Value: raw}
	}
	nested, ok := c.registry.Schema(spec.Ref)
	if !ok {
		return nil, &SchemaNotFoundError{Name: spec.Ref}
	}
	return c.materialize(nested, m)
}

// coerceScalar converts raw into the scalar type declared by spec. It is
// shared with default-literal parsing, which is why it takes no Coercer.
func coerceScalar(raw any, spec FieldSpec) (any, error) {
	fail := func(cause error) (any, error) {
		return nil, &CoercionError{Field: spec.Name, Type: spec.Type, Value: raw, Cause: cause}
	}
	switch spec.Type {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case bool:
			return strconv.FormatBool(v), nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		default:
			return fail(fmt.Errorf("collections cannot be stringified"))
		}
	case TypeInteger, TypeLong:
		n, err := toInt64(raw)
		if err != nil {
			return fail(err)
		}
		return n, nil
	case TypeDouble:
		f, err := toFloat64(raw)
		if err != nil {
			return fail(err)
		}
		return f, nil
	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			if strings.EqualFold(v, "true") {
				return true, nil
			}
			if strings.EqualFold(v, "false") {
				return false, nil
			}
			return fail(fmt.Errorf("not a boolean literal"))
		default:
			return fail(fmt.Errorf("not a boolean"))
		}
	}
	return fail(fmt.Errorf("not a scalar type"))
}

// toInt64 converts numeric input to int64, truncating fractional values
// toward zero. Numeric strings parse; anything else is an error.
func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a numeric string: %q", v)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}

// toFloat64 widens integral input losslessly and parses numeric strings.
func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a numeric string: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}
