package probe

import (
	"fmt"
	"sync"
)

// Registry holds the probes an integration owns, keyed by name. Probes are
// registered at startup; lookups are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Prober
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]Prober)}
}

// Register adds a probe to the registry. Registering a duplicate or unnamed
// probe is an error.
func (r *Registry) Register(p Prober) error {
	if p == nil {
		return fmt.Errorf("probe: cannot register nil probe")
	}
	name := p.Info().Name
	if name == "" {
		return fmt.Errorf("probe: cannot register probe without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.probes[name]; exists {
		return fmt.Errorf("probe: %q already registered", name)
	}
	r.probes[name] = p
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a probe and panics on error. Intended for catalog
// construction at startup.
func (r *Registry) MustRegister(p Prober) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the probe registered under name.
func (r *Registry) Get(name string) (Prober, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.probes[name]
	return p, ok
}

// Describe returns the descriptor of the named probe.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	p, ok := r.Get(name)
	if !ok {
		return Descriptor{}, false
	}
	return p.Info(), true
}

// Names returns probe names in registration order, optionally filtered by
// category.
func (r *Registry) Names(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.probes[name].Info().MatchesCategory(category) {
			out = append(out, name)
		}
	}
	return out
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.probes[name].Info())
	}
	return out
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.probes)
}
