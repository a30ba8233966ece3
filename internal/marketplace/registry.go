package marketplace

import (
	"fmt"
	"sync"

	"github.com/syncline/marketsync/internal/domain"
)

// Registry resolves marketplace types to their adapters. Registration happens
// once at startup; lookups are read-only afterwards, so adding a marketplace
// is a closed, testable unit instead of a growing switch statement.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.MarketplaceType]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[domain.MarketplaceType]Adapter),
	}
}

// Register adds an adapter under its own marketplace type. Registering the
// same type twice replaces the earlier adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Type()] = a
}

// Get returns the adapter for the given marketplace type.
// Parameters:
//   - t: marketplace type to resolve.
// Returns:
//   - Adapter: registered adapter.
//   - error: ErrUnknownMarketplace when no adapter is registered for t.
func (r *Registry) Get(t domain.MarketplaceType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarketplace, t)
	}
	return a, nil
}

// Types returns the registered marketplace types.
func (r *Registry) Types() []domain.MarketplaceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.MarketplaceType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	return types
}
