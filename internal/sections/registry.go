package sections

import (
	"fmt"
	"sort"
)

// Registry indexes catalog sections by name and keeps catalog order, which
// is the order sections are generated in.
type Registry struct {
	sections map[string]*Section
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sections: make(map[string]*Section)}
}

// NewRegistryFromCatalog registers every catalog section. Duplicate names or
// context keys are an error.
func NewRegistryFromCatalog(cat *Catalog) (*Registry, error) {
	r := NewRegistry()
	keys := make(map[string]string, len(cat.Sections))
	for _, s := range cat.Sections {
		if other, dup := keys[s.Key]; dup {
			return nil, fmt.Errorf("context key %s used by %s and %s", s.Key, other, s.Name)
		}
		keys[s.Key] = s.Name
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a section. Names must be unique.
func (r *Registry) Register(s *Section) error {
	if _, exists := r.sections[s.Name]; exists {
		return fmt.Errorf("section already registered: %s", s.Name)
	}
	r.sections[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// Get retrieves a section by name.
func (r *Registry) Get(name string) (*Section, bool) {
	s, ok := r.sections[name]
	return s, ok
}

// List returns sections in registration order.
func (r *Registry) List() []*Section {
	out := make([]*Section, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sections[name])
	}
	return out
}

// Names returns the section names sorted alphabetically.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Count returns the number of registered sections.
func (r *Registry) Count() int {
	return len(r.sections)
}
