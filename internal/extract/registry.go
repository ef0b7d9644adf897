package extract

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownExtractorID is returned when registry lookup fails.
var ErrUnknownExtractorID = errors.New("unknown extractor id")

// ErrDuplicateExtractorID is returned when registry receives duplicate IDs.
var ErrDuplicateExtractorID = errors.New("duplicate extractor id")

// Factory builds a fresh extractor instance for one run.
type Factory func() Extractor

// Registry maps extractor IDs to factories with deterministic ordering.
// Registration happens in a central bootstrap before orchestration begins;
// the registry is immutable afterwards.
type Registry struct {
	ordered   []Descriptor
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds an extractor factory. The descriptor is taken from a probe
// instance so identity stays declared next to the extractor.
func (r *Registry) Register(factory Factory) error {
	desc := factory().Descriptor()

	if _, exists := r.factories[desc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExtractorID, desc.ID)
	}

	r.factories[desc.ID] = factory
	r.ordered = append(r.ordered, desc)

	return nil
}

// MustRegister adds an extractor factory and panics on duplicates.
// Used by the bootstrap where a duplicate is a programming error.
func (r *Registry) MustRegister(factory Factory) {
	err := r.Register(factory)
	if err != nil {
		panic(err)
	}
}

// New builds a fresh instance of the identified extractor.
func (r *Registry) New(id string) (Extractor, error) {
	factory, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtractorID, id)
	}

	return factory(), nil
}

// All returns every registered descriptor in registration order.
func (r *Registry) All() []Descriptor {
	descriptors := make([]Descriptor, len(r.ordered))
	copy(descriptors, r.ordered)

	return descriptors
}

// IDs returns every registered ID in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, desc := range r.ordered {
		ids = append(ids, desc.ID)
	}

	sort.Strings(ids)

	return ids
}

// ByModule returns descriptors whose module matches, in registration order.
// An empty module matches everything.
func (r *Registry) ByModule(module string) []Descriptor {
	if module == "" {
		return r.All()
	}

	matched := make([]Descriptor, 0, len(r.ordered))

	for _, desc := range r.ordered {
		if desc.Module == module {
			matched = append(matched, desc)
		}
	}

	return matched
}

// Len returns the number of registered extractors.
func (r *Registry) Len() int {
	return len(r.ordered)
}
