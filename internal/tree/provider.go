package tree

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"canopy/internal/identity"
	"canopy/pkg/logging"
)

// Provider is an independently-implemented plugin that contributes a root
// node and the expandable subtree beneath it.
type Provider interface {
	// ID returns the provider's unique id. It must not contain the
	// namespace separator or the path separator; registration rejects it
	// otherwise.
	ID() string

	// RootNode returns the provider's root node. The orchestrator passes
	// the parent path the root will be mounted under ("" for top level);
	// the returned node's id must be BuildChildID(parentPath, ID()).
	RootNode(ctx context.Context, parentPath string) (Node, error)
}

// Registry manages the collection of registered discovery providers.
//
// Registration validates the provider id against the namespace rules once,
// up front, so that every identifier the provider later contributes has a
// well-formed prefix to be checked against.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. It fails with
// InvalidProviderIDError if the provider id contains a reserved separator,
// and with a plain error if the id is already taken.
func (r *Registry) Register(p Provider) error {
	if err := identity.ValidateProviderID(p.ID()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[p.ID()]; exists {
		return fmt.Errorf("provider %s already registered", p.ID())
	}
	r.providers[p.ID()] = p

	logging.Info("Registry", "Registered discovery provider: %s", p.ID())
	return nil
}

// Get returns the provider with the given id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the ids of all registered providers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveProviders is the persisted allow-list of provider ids the host has
// enabled. Injected into the orchestrator so tests can supply a fake.
type ActiveProviders interface {
	// Active returns the allow-listed provider ids. ok is false when no
	// allow-list has ever been persisted, in which case every registered
	// provider is treated as active.
	Active() (ids []string, ok bool, err error)
}

// AllActive is an ActiveProviders that never filters. Used when no persisted
// allow-list is configured.
type AllActive struct{}

// Active implements ActiveProviders.
func (AllActive) Active() ([]string, bool, error) { return nil, false, nil }
