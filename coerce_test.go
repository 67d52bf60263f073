package factmat

import (
	"encoding/json"
	"errors"
	"testing"
)

func newTestCoercer() *Coercer {
	return &Coercer{registry: NewRegistry()}
}

func TestCoerce_String(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "s", Type: TypeString}
	cases := []struct {
		in   any
		want string
	}{
		{"hi", "hi"},
		{json.Number("42"), "42"},
		{json.Number("2.5"), "2.5"},
		{true, "true"},
		{int64(7), "7"},
	}
	for _, tc := range cases {
		got, err := c.Coerce(tc.in, spec)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%v: got %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := c.Coerce([]any{"a"}, spec); err == nil {
		t.Errorf("collections must not stringify")
	}
	if _, err := c.Coerce(map[string]any{}, spec); err == nil {
		t.Errorf("maps must not stringify")
	}
}

func TestCoerce_Integer(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "n", Type: TypeInteger}
	cases := []struct {
		in   any
		want int64
	}{
		{json.Number("16"), 16},
		{json.Number("95.7"), 95},
		{"25", 25},
		{"3.9", 3},
		{float64(-3.9), -3}, // truncation toward zero
		{int64(8), 8},
	}
	for _, tc := range cases {
		got, err := c.Coerce(tc.in, spec)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.in, got, tc.want)
		}
	}

	_, err := c.Coerce("abc", spec)
	var ce *CoercionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CoercionError, got %v", err)
	}
	if ce.Field != "n" || ce.Type != TypeInteger {
		t.Errorf("error must name field and type: %+v", ce)
	}
	if _, err := c.Coerce(true, spec); err == nil {
		t.Errorf("bool must not coerce to integer")
	}
}

func TestCoerce_Double(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "d", Type: TypeDouble}
	cases := []struct {
		in   any
		want float64
	}{
		{json.Number("2.5"), 2.5},
		{json.Number("4"), 4},
		{"0.25", 0.25},
		{int64(3), 3},
	}
	for _, tc := range cases {
		got, err := c.Coerce(tc.in, spec)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := c.Coerce("oops", spec); err == nil {
		t.Errorf("non-numeric string must fail")
	}
}

func TestCoerce_Boolean(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "b", Type: TypeBoolean}
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"False", false},
	}
	for _, tc := range cases {
		got, err := c.Coerce(tc.in, spec)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := c.Coerce(json.Number("1"), spec); err == nil {
		t.Errorf("numbers must not coerce to boolean")
	}
	if _, err := c.Coerce("yes", spec); err == nil {
		t.Errorf("arbitrary strings must not coerce to boolean")
	}
}

func TestCoerce_ListPromotion(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "scores", Type: TypeList, Elem: &FieldSpec{Name: "scores", Type: TypeInteger}}

	got, err := c.Coerce(json.Number("95"), spec)
	if err != nil {
		t.Fatalf("promotion failed: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 1 || list[0] != int64(95) {
		t.Fatalf("got %#v, want [95]", got)
	}

	got, err = c.Coerce([]any{json.Number("1"), "2"}, spec)
	if err != nil {
		t.Fatalf("list coercion failed: %v", err)
	}
	list = got.([]any)
	if list[0] != int64(1) || list[1] != int64(2) {
		t.Fatalf("element coercion wrong: %#v", list)
	}

	// element failure names the indexed field
	_, err = c.Coerce([]any{"x"}, spec)
	var ce *CoercionError
	if !errors.As(err, &ce) || ce.Field != "scores[0]" {
		t.Fatalf("expected indexed CoercionError, got %v", err)
	}
}

func TestCoerce_UntypedListPassthrough(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "misc", Type: TypeList}
	in := []any{"a", json.Number("1")}
	got, err := c.Coerce(in, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list := got.([]any); len(list) != 2 {
		t.Fatalf("got %#v", got)
	}
}

func TestCoerce_MapStrict(t *testing.T) {
	c := newTestCoercer()
	spec := FieldSpec{Name: "props", Type: TypeMap}
	m := map[string]any{"k": "v"}
	got, err := c.Coerce(m, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(map[string]any)["k"] != "v" {
		t.Fatalf("got %#v", got)
	}
	if _, err := c.Coerce("scalar", spec); err == nil {
		t.Fatalf("scalars must not coerce to map")
	}
	if _, err := c.Coerce([]any{}, spec); err == nil {
		t.Fatalf("lists must not coerce to map")
	}
}

func TestCoerce_NullUsesDefault(t *testing.T) {
	c := newTestCoercer()
	withDefault := FieldSpec{Name: "status", Type: TypeString, Default: "active"}
	got, err := c.Coerce(nil, withDefault)
	if err != nil || got != "active" {
		t.Fatalf("got %v, %v", got, err)
	}
	noDefault := FieldSpec{Name: "status", Type: TypeString}
	got, err = c.Coerce(nil, noDefault)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestCoerce_ObjectReference(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.RegisterDecl(`declare Address street : String end`); err != nil {
		t.Fatalf("register: %v", err)
	}
	m := NewMaterializer(reg)
	spec := FieldSpec{Name: "home", Type: TypeObject, Ref: "Address"}

	got, err := m.coercer.Coerce(map[string]any{"street": "Main"}, spec)
	if err != nil {
		t.Fatalf("nested materialization failed: %v", err)
	}
	f, ok := got.(Fact)
	if !ok || f.SchemaName() != "Address" {
		t.Fatalf("got %#v", got)
	}

	// pre-materialized fact of the matching schema passes through
	again, err := m.coercer.Coerce(f, spec)
	if err != nil || again != f {
		t.Fatalf("passthrough failed: %v %v", again, err)
	}

	// fact of another schema is rejected
	if _, err := reg.RegisterDecl(`declare Person name : String end`); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, err := m.Materialize("Person", map[string]any{"name": "Jane"})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if _, err := m.coercer.Coerce(p, spec); err == nil {
		t.Fatalf("mismatched fact schema must fail")
	}

	// unknown reference surfaces SchemaNotFoundError
	missing := FieldSpec{Name: "x", Type: TypeObject, Ref: "Nope"}
	_, err = m.coercer.Coerce(map[string]any{}, missing)
	var nf *SchemaNotFoundError
	if !errors.As(err, &nf) || nf.Name != "Nope" {
		t.Fatalf("expected SchemaNotFoundError, got %v", err)
	}

	// scalars never coerce to object references
	if _, err := m.coercer.Coerce("str", spec); err == nil {
		t.Fatalf("scalar must not coerce to object")
	}
}
