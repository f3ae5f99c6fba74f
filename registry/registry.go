// Package registry implements the process-wide table of live filter
// instances keyed by filter name. The Loader keeps it in sync as filters
// are compiled, registered, and removed, for lookup by name; the
// FilterProcessor does not read it and runs the Loader's per-kind
// sequences instead. The table is guarded by an RWMutex and mutated in
// place; Snapshot returns a copy that is safe to iterate.
package registry

import (
	"sync"

	"github.com/edgerun/gatewayd/filters"
)

// Registry is a mapping from filter name to the current Filter instance.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]filters.Filter
}

func New() *Registry {
	return &Registry{filters: make(map[string]filters.Filter)}
}

// Put inserts or replaces the instance registered under f.Name().
func (r *Registry) Put(f filters.Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.Name()] = f
}

// Get returns the instance registered under name, or nil if there is none.
func (r *Registry) Get(name string) filters.Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filters[name]
}

// Remove drops the instance registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.filters, name)
}

// Snapshot returns a point-in-time copy of the whole table, safe for the
// caller to iterate without further synchronization.
func (r *Registry) Snapshot() map[string]filters.Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]filters.Filter, len(r.filters))
	for k, v := range r.filters {
		out[k] = v
	}
	return out
}
