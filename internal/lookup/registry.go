package lookup

import "sync"

// Registry is the named-service directory §4.2 calls the "service registry"
// ambient reference. It satisfies expr.ServiceRegistry structurally (Resolve
// has the right shape) without internal/lookup importing internal/expr.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register adds or replaces a named service.
func (r *Registry) Register(name string, svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = svc
}

// Resolve looks up a named service. The any return satisfies
// expr.ServiceRegistry; callers that need a lookup.Service should use Get
// instead of Resolve directly.
func (r *Registry) Resolve(name string) (any, bool) {
	return r.Get(name)
}

// Get looks up a named service with its concrete type preserved.
func (r *Registry) Get(name string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}
