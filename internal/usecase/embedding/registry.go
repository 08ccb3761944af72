package embedding

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// Vectorizer pairs the embedders used for page text and for questions. Both
// must produce vectors in the same space.
type Vectorizer struct {
	Documents domain.Embedder
	Queries   domain.Embedder
}

// Registry resolves vectorizers by name.
type Registry struct {
	vectorizers map[string]Vectorizer
	defaultName string
}

// NewRegistry creates a registry. defaultName must be registered.
func NewRegistry(vectorizers map[string]Vectorizer, defaultName string) (*Registry, error) {
	if _, ok := vectorizers[defaultName]; !ok {
		return nil, fmt.Errorf("default vectorizer %q is not configured", defaultName)
	}
	for name, v := range vectorizers {
		if v.Documents == nil || v.Queries == nil {
			return nil, fmt.Errorf("vectorizer %q: both embedders are required", name)
		}
	}
	return &Registry{vectorizers: vectorizers, defaultName: defaultName}, nil
}

// Default returns the name of the default vectorizer.
func (r *Registry) Default() string { return r.defaultName }

// Names returns registered vectorizer names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.vectorizers))
	for n := range r.vectorizers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the named vectorizer; an empty name selects the default.
func (r *Registry) Get(name string) (Vectorizer, error) {
	if name == "" {
		name = r.defaultName
	}
	v, ok := r.vectorizers[name]
	if !ok {
		return Vectorizer{}, fmt.Errorf("vectorizer %q: %w", name, domain.ErrNotFound)
	}
	return v, nil
}

// Documents returns the page-text embedder of the named vectorizer.
func (r *Registry) Documents(name string) (domain.Embedder, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return v.Documents, nil
}

// Queries returns the question embedder of the named vectorizer.
func (r *Registry) Queries(name string) (domain.Embedder, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return v.Queries, nil
}
