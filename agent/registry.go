package agent

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Registry.Get for unknown agent names.
var ErrNotFound = errors.New("agent: not found")

// Registry holds the live agent instances the coordinator dispatches to.
// Registration happens during startup; lookups are concurrent afterwards.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	specs  map[string]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		specs:  make(map[string]Spec),
	}
}

// Register adds an agent under its Name. Registering a duplicate name is an
// error so that a catalog typo fails fast at startup.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if name == "" {
		return errors.New("agent: empty name")
	}
	if _, ok := r.agents[name]; ok {
		return errors.Errorf("agent: %q already registered", name)
	}
	r.agents[name] = a
	if spec, ok := CatalogSpec(name); ok {
		r.specs[name] = spec
	} else {
		r.specs[name] = Spec{Name: name}
	}
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return a, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the catalog specs of all registered agents in catalog order,
// with agents missing a catalog entry appended alphabetically.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spec, 0, len(r.specs))
	for _, s := range Catalog {
		if _, ok := r.agents[s.Name]; ok {
			out = append(out, s)
		}
	}
	var extra []string
	for name := range r.agents {
		if _, ok := CatalogSpec(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, r.specs[name])
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
