package midispy

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/midispy/sdk/contracts"
)

// Registry tracks the set of endpoints a session is attached to. It enforces
// at most one connection per endpoint reference and resolves delivery events
// back to an endpoint identity. Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	endpoints map[uint32]contracts.Endpoint
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[uint32]contracts.Endpoint)}
}

// Add records a connection to the endpoint. Fails with ErrConnectionExists,
// without side effects, if one is already present.
func (r *Registry) Add(endpoint contracts.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.endpoints[endpoint.Ref]; ok {
		return fmt.Errorf("%w: %s", contracts.ErrConnectionExists, endpoint.Name)
	}
	r.endpoints[endpoint.Ref] = endpoint
	return nil
}

// Remove drops the connection to the endpoint. Fails with
// ErrConnectionNotFound, without side effects, if none is present.
func (r *Registry) Remove(endpointRef uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.endpoints[endpointRef]; !ok {
		return fmt.Errorf("%w: ref %d", contracts.ErrConnectionNotFound, endpointRef)
	}
	delete(r.endpoints, endpointRef)
	return nil
}

// Contains reports whether a connection to the endpoint reference exists.
func (r *Registry) Contains(endpointRef uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.endpoints[endpointRef]
	return ok
}

// Resolve maps an endpoint reference back to the connected endpoint.
func (r *Registry) Resolve(endpointRef uint32) (contracts.Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	endpoint, ok := r.endpoints[endpointRef]
	return endpoint, ok
}

// List returns the currently connected endpoints. Order is unspecified.
func (r *Registry) List() []contracts.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]contracts.Endpoint, 0, len(r.endpoints))
	for _, endpoint := range r.endpoints {
		out = append(out, endpoint)
	}
	return out
}
