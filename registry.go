package factmat

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind groups registry entries for declarative-text generation ordering.
type Kind int

const (
	KindImport Kind = iota
	KindGlobal
	KindType
	KindFunction
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindGlobal:
		return "global"
	case KindType:
		return "type"
	case KindFunction:
		return "function"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// renderOrder is the fixed kind ordering for DeclarativeText.
var renderOrder = []Kind{KindImport, KindGlobal, KindType, KindFunction, KindOther}

// Entry is one registered definition. Schema is non-nil only for
// KindType entries; other kinds keep their original text opaque.
type Entry struct {
	Name   string
	Kind   Kind
	Text   string
	Schema *ObjectSchema
}

// Registry stores named definitions for the lifetime of the process (or
// until explicitly removed). It tolerates concurrent readers and writers
// without external locking; reads never block each other.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register stores a definition under name, replacing any previous entry
// with the same name (last write wins) and returning the replaced entry.
// KindType definitions are parsed eagerly; a definition that fails to
// parse registers nothing.
func (r *Registry) Register(name string, kind Kind, definition string) (*Entry, error) {
	if name == "" {
		return nil, fmt.Errorf("factmat: registry: name must not be empty")
	}
	if strings.TrimSpace(definition) == "" {
		return nil, fmt.Errorf("factmat: registry: definition for %q must not be empty", name)
	}
	e := &Entry{Name: name, Kind: kind, Text: definition}
	if kind == KindType {
		schemas, err := ParseDecl(definition)
		if err != nil {
			return nil, err
		}
		if len(schemas) != 1 {
			return nil, fmt.Errorf("factmat: registry: definition for %q declares %d schemas, want 1", name, len(schemas))
		}
		if schemas[0].Name != name {
			return nil, fmt.Errorf("factmat: registry: definition declares %q, registered as %q", schemas[0].Name, name)
		}
		e.Schema = schemas[0]
	}
	r.mu.Lock()
	prev := r.entries[name]
	r.entries[name] = e
	r.mu.Unlock()
	return prev, nil
}

// RegisterSchema stores an already-constructed schema, returning any
// replaced schema. The entry text is the schema's canonical rendering.
func (r *Registry) RegisterSchema(s *ObjectSchema) (*ObjectSchema, error) {
	if s == nil || s.Name == "" {
		return nil, fmt.Errorf("factmat: registry: schema must have a name")
	}
	e := &Entry{Name: s.Name, Kind: KindType, Text: s.DeclarativeText(), Schema: s}
	r.mu.Lock()
	prev := r.entries[s.Name]
	r.entries[s.Name] = e
	r.mu.Unlock()
	if prev != nil {
		return prev.Schema, nil
	}
	return nil, nil
}

// RegisterDecl parses declarative text and registers every schema it
// declares. Registration is all-or-nothing: a parse error registers
// nothing.
func (r *Registry) RegisterDecl(text string) ([]*ObjectSchema, error) {
	schemas, err := ParseDecl(text)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		if _, err := r.RegisterSchema(s); err != nil {
			return nil, err
		}
	}
	return schemas, nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Schema returns the object schema registered under name, when the entry
// is a type definition.
func (r *Registry) Schema(name string) (*ObjectSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok || e.Schema == nil {
		return nil, false
	}
	return e.Schema, true
}

// Remove deletes and returns the entry under name, nil when absent.
func (r *Registry) Remove(name string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[name]
	delete(r.entries, name)
	return e
}

// ListByKind returns entries of the given kind sorted by name.
func (r *Registry) ListByKind(kind Kind) []*Entry {
	r.mu.RLock()
	var out []*Entry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// DeclarativeText renders every entry back to declarative text in the
// fixed kind order: imports, globals, types, functions, then everything
// else. Within a kind, entries render sorted by name; each keeps its
// original textual form. A non-empty namespace emits a package header.
func (r *Registry) DeclarativeText(namespace string) string {
	b := &strings.Builder{}
	if namespace != "" {
		b.WriteString("package ")
		b.WriteString(namespace)
		b.WriteString("\n\n")
	}
	for _, kind := range renderOrder {
		for _, e := range r.ListByKind(kind) {
			b.WriteString(strings.TrimRight(e.Text, "\n"))
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
