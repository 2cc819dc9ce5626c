package device

import "sync"

// Resolver supplies sub-service overrides by kind.
type Resolver interface {
	Resolve(kind Kind) (any, bool)
}

// MapResolver is a Resolver backed by a map. It is safe for concurrent use.
type MapResolver struct {
	mu       sync.RWMutex
	services map[Kind]any
}

// NewMapResolver creates an empty resolver.
func NewMapResolver() *MapResolver {
	return &MapResolver{services: make(map[Kind]any)}
}

// Register sets the service for kind, replacing any earlier registration.
func (r *MapResolver) Register(kind Kind, svc any) {
	r.mu.Lock()
	r.services[kind] = svc
	r.mu.Unlock()
}

// Resolve returns the service registered for kind.
func (r *MapResolver) Resolve(kind Kind) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[kind]
	return svc, ok
}
