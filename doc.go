// Package factmat materializes schema-free JSON facts into typed runtime
// objects a rule engine can pattern-match against.
//
// Upstream producers know facts only as JSON plus an optional "_type"
// discriminator. factmat bridges that to the engine's getter/setter world:
// a Registry holds named object schemas (field names, types, defaults,
// nesting), a Coercer converts loosely-typed JSON values into declared
// field types, and a Materializer turns validated field maps into Fact
// values.
//
// Two materialization strategies exist. The struct strategy builds a
// concrete struct type per schema at runtime (reflect.StructOf), caches it
// by schema identity, and populates instances from the coerced field map.
// The map strategy backs a Fact with an ordered field map and needs no
// type construction; it is the canonical fallback when the struct strategy
// is unavailable in the current runtime.
//
// Typical use:
//
//	reg := factmat.NewRegistry()
//	_, err := reg.Register("Person", factmat.KindType, `
//	declare Person
//	    name! : String
//	    age   : Integer
//	    adult : Boolean = false
//	end`)
//	m := factmat.NewMaterializer(reg)
//	facts, err := m.FromJSON([]byte(`{"name":"Jane","age":16}`), "Person")
package factmat
