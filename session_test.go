package factmat

import (
	"sync"
	"testing"
)

func TestSession_InsertDedupe(t *testing.T) {
	s := NewSession()
	a := newPersonFact(t, StrategyMap, map[string]any{"name": "Jane", "age": 16})
	b := newPersonFact(t, StrategyStruct, map[string]any{"name": "Jane", "age": 16})

	if !s.Insert(a) {
		t.Fatalf("first insert must succeed")
	}
	// value identity: the struct-backed twin is the same fact
	if s.Insert(b) {
		t.Fatalf("equal fact must not insert twice")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 fact, got %d", s.Len())
	}
	if s.Insert(nil) {
		t.Fatalf("nil insert must be a no-op")
	}
}

func TestSession_InsertAllAndRetract(t *testing.T) {
	s := NewSession()
	a := newPersonFact(t, StrategyMap, map[string]any{"name": "Jane", "age": 16})
	b := newPersonFact(t, StrategyMap, map[string]any{"name": "Alice", "age": 30})
	dup := newPersonFact(t, StrategyMap, map[string]any{"name": "Jane", "age": 16})

	if n := s.InsertAll([]Fact{a, b, dup}); n != 2 {
		t.Fatalf("expected 2 new facts, got %d", n)
	}
	if !s.Retract(dup) {
		t.Fatalf("retract by value must remove the equal fact")
	}
	if s.Retract(a) {
		t.Fatalf("second retract must miss")
	}
	facts := s.Facts()
	if len(facts) != 1 || !facts[0].Equal(b) {
		t.Fatalf("expected only Alice, got %v", facts)
	}
}

func TestSession_FactsFor(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.RegisterDecl(`declare Person name : String end
declare Order id : String end`)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	m := NewMaterializer(reg)
	p, _ := m.Materialize("Person", map[string]any{"name": "Jane"})
	o, _ := m.Materialize("Order", map[string]any{"id": "o-1"})

	s := NewSession()
	s.InsertAll([]Fact{p, o})
	if got := s.FactsFor("Person"); len(got) != 1 || got[0].SchemaName() != "Person" {
		t.Fatalf("got %v", got)
	}
	if got := s.FactsFor("Missing"); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestSession_ConcurrentInsert(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.RegisterDecl(`declare Event n : Integer end`); err != nil {
		t.Fatalf("register: %v", err)
	}
	m := NewMaterializer(reg)
	s := NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := m.Materialize("Event", map[string]any{"n": i})
			if err != nil {
				t.Errorf("materialize: %v", err)
				return
			}
			s.Insert(f)
			s.Insert(f) // duplicate must be dropped
		}(i)
	}
	wg.Wait()
	if s.Len() != 16 {
		t.Fatalf("expected 16 distinct facts, got %d", s.Len())
	}
}
