package locator

import "sync"

// Handle identifies a mount point, e.g. a page or session id.
type Handle string

// Registry keeps at most one Map per handle.
type Registry struct {
	mu   sync.Mutex
	maps map[Handle]*Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[Handle]*Map)}
}

// Make returns the Map for h, building it with build on first use.
func (r *Registry) Make(h Handle, build func() (*Map, error)) (*Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.maps[h]; ok {
		return m, nil
	}
	m, err := build()
	if err != nil {
		return nil, err
	}
	r.maps[h] = m
	return m, nil
}

// Get returns the Map for h.
func (r *Registry) Get(h Handle) (*Map, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.maps[h]
	return m, ok
}

// Dispose removes and disposes the Map for h.
func (r *Registry) Dispose(h Handle) bool {
	r.mu.Lock()
	m, ok := r.maps[h]
	delete(r.maps, h)
	r.mu.Unlock()
	if ok {
		m.Dispose()
	}
	return ok
}

// Len reports how many maps are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.maps)
}
