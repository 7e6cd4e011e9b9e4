// Package filters implements the built-in Liquid filter set (spec §6.2
// "Filter interface") as a registry satisfying runtime.FilterLookup.
package filters

import (
	"sync"

	"github.com/liquidgo/liquid/runtime"
)

// Registry is a concurrency-safe name->FilterFunc table. It satisfies
// runtime.FilterLookup structurally, so runtime never imports this package.
// Grounded on teacher filters/filter.go's FilterRegistry (RWMutex-guarded map).
type Registry struct {
	mu      sync.RWMutex
	filters map[string]runtime.FilterFunc
}

// NewRegistry builds a Registry pre-populated with every filter defined in
// this package.
func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]runtime.FilterFunc)}
	registerStringFilters(r)
	registerNumericFilters(r)
	registerCollectionFilters(r)
	registerHTMLFilters(r)
	return r
}

func (r *Registry) Register(name string, fn runtime.FilterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
}

func (r *Registry) Get(name string) (runtime.FilterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	return names
}
