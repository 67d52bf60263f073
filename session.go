package factmat

import "sync"

// Session is a minimal working-memory surface for handing materialized
// facts to a rule-engine collaborator. Fact identity is value identity
// (Fact.Equal), so inserting an equal fact twice is a no-op.
type Session struct {
	mu    sync.RWMutex
	facts []Fact
}

// NewSession returns an empty working memory.
func NewSession() *Session { return &Session{} }

// Insert adds a fact; returns false when an equal fact is already
// present.
func (s *Session) Insert(f Fact) bool {
	if f == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.facts {
		if existing.Equal(f) {
			return false
		}
	}
	s.facts = append(s.facts, f)
	return true
}

// InsertAll inserts each fact, returning how many were new.
func (s *Session) InsertAll(facts []Fact) int {
	n := 0
	for _, f := range facts {
		if s.Insert(f) {
			n++
		}
	}
	return n
}

// Retract removes the fact equal to f; returns whether one was removed.
func (s *Session) Retract(f Fact) bool {
	if f == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.facts {
		if existing.Equal(f) {
			s.facts = append(s.facts[:i], s.facts[i+1:]...)
			return true
		}
	}
	return false
}

// Facts returns a snapshot of all facts in insertion order.
func (s *Session) Facts() []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// FactsFor returns the facts materialized from the named schema.
func (s *Session) FactsFor(schema string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Fact
	for _, f := range s.facts {
		if f.SchemaName() == schema {
			out = append(out, f)
		}
	}
	return out
}

// Len reports the number of facts held.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}
