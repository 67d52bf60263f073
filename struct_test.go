package factmat

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func mustSchema(t *testing.T, decl string) *ObjectSchema {
	t.Helper()
	schemas, err := ParseDecl(decl)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return schemas[0]
}

func newStructMat() (*StructMaterializer, *TypeCache) {
	cache := NewTypeCache()
	c := &Coercer{registry: NewRegistry()}
	return NewStructMaterializer(cache, c, zerolog.Nop()), cache
}

func TestStructMaterializer_BuildAndPopulate(t *testing.T) {
	sm, cache := newStructMat()
	schema := mustSchema(t, `declare Person name : String age : Integer adult : Boolean end`)

	f, err := sm.Materialize(schema, map[string]any{"name": "Jane", "age": int64(16), "adult": false})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if got, _ := f.Get("name"); got != "Jane" {
		t.Errorf("name: %v", got)
	}
	if got, _ := f.Get("age"); got != int64(16) {
		t.Errorf("age: %v (%T)", got, got)
	}
	if cache.Len() != 1 {
		t.Errorf("expected one cached type, got %d", cache.Len())
	}
}

func TestStructMaterializer_CacheReuse(t *testing.T) {
	sm, _ := newStructMat()
	schema := mustSchema(t, `declare Person name : String end`)

	ct1, err := sm.typeFor(schema)
	if err != nil {
		t.Fatalf("typeFor: %v", err)
	}
	ct2, err := sm.typeFor(schema)
	if err != nil {
		t.Fatalf("typeFor: %v", err)
	}
	if ct1.typ != ct2.typ {
		t.Fatalf("same schema content must reuse the cached type")
	}
}

func TestStructMaterializer_RevisionInvalidatesCache(t *testing.T) {
	sm, cache := newStructMat()
	v1 := mustSchema(t, `declare Person name : String end`)
	v2 := mustSchema(t, `declare Person name : String age : Integer end`)

	ct1, err := sm.typeFor(v1)
	if err != nil {
		t.Fatalf("typeFor v1: %v", err)
	}
	// same name, different content: the stale type must not be reused
	ct2, err := sm.typeFor(v2)
	if err != nil {
		t.Fatalf("typeFor v2: %v", err)
	}
	if ct1.typ == ct2.typ {
		t.Fatalf("schema revision must rebuild the type")
	}
	if ct2.typ.NumField() != 2 {
		t.Fatalf("rebuilt type must reflect the new schema, has %d fields", ct2.typ.NumField())
	}
	if cache.Len() != 1 {
		t.Fatalf("cache keys by name; expected 1 entry, got %d", cache.Len())
	}
}

func TestStructMaterializer_IdempotentRecompilation(t *testing.T) {
	sm, cache := newStructMat()
	schema := mustSchema(t, `declare Person name : String age : Integer end`)
	in := map[string]any{"name": "Jane", "age": int64(16)}

	f1, err := sm.Materialize(schema, in)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	cache.Invalidate("Person")
	f2, err := sm.Materialize(schema, in)
	if err != nil {
		t.Fatalf("materialize after invalidation: %v", err)
	}
	if !f1.Equal(f2) || f1.Hash() != f2.Hash() {
		t.Fatalf("recompilation must be idempotent")
	}
}

func TestStructMaterializer_InvalidFieldName(t *testing.T) {
	sm, _ := newStructMat()
	schema, err := NewObjectSchema("Broken", "", []FieldSpec{{Name: "1bad", Type: TypeString}})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	_, err = sm.Materialize(schema, map[string]any{})
	var me *MaterializationError
	if !errors.As(err, &me) {
		t.Fatalf("expected MaterializationError, got %v", err)
	}
	if me.Field != "1bad" {
		t.Errorf("error must name the offending field, got %q", me.Field)
	}
	if !strings.Contains(me.Source, "1bad") {
		t.Errorf("error must carry the generated source, got:\n%s", me.Source)
	}
}

func TestStructMaterializer_Unavailable(t *testing.T) {
	sm, _ := newStructMat()
	sm.unavailable = true
	schema := mustSchema(t, `declare Person name : String end`)
	_, err := sm.Materialize(schema, map[string]any{"name": "x"})
	if !errors.Is(err, ErrStrategyUnavailable) {
		t.Fatalf("expected ErrStrategyUnavailable, got %v", err)
	}
}

func TestStructMaterializer_ConcurrentDistinctSchemas(t *testing.T) {
	sm, cache := newStructMat()
	decls := []string{
		`declare A x : String end`,
		`declare B y : Integer end`,
		`declare C z : Boolean end`,
		`declare D w : Double end`,
	}
	schemas := make([]*ObjectSchema, len(decls))
	inputs := []map[string]any{
		{"x": "v"}, {"y": int64(1)}, {"z": true}, {"w": 0.5},
	}
	for i, d := range decls {
		schemas[i] = mustSchema(t, d)
	}
	var wg sync.WaitGroup
	for i := range schemas {
		for j := 0; j < 10; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				f, err := sm.Materialize(schemas[i], inputs[i])
				if err != nil {
					t.Errorf("schema %s: %v", schemas[i].Name, err)
					return
				}
				if f.SchemaName() != schemas[i].Name {
					t.Errorf("cross-schema corruption: got %s, want %s", f.SchemaName(), schemas[i].Name)
				}
			}(i)
		}
	}
	wg.Wait()
	if cache.Len() != len(schemas) {
		t.Fatalf("expected %d cached types, got %d", len(schemas), cache.Len())
	}
}

func TestExportName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"name", "Name", true},
		{"firstName", "FirstName", true},
		{"first_name", "First_name", true},
		{"n2", "N2", true},
		{"1bad", "", false},
		{"_hidden", "", false},
		{"", "", false},
		{"with-dash", "", false},
	}
	for _, tc := range cases {
		got, err := exportName(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("%q: got %q, %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected error", tc.in)
		}
	}
}
