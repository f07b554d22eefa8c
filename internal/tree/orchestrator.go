package tree

import (
	"context"
	"fmt"

	"canopy/internal/identity"
	"canopy/pkg/logging"
)

// Orchestrator composes the relationship cache, the in-flight deduplication,
// the failure memo, and the provider registry behind the host's tree
// contract: produce roots, produce children, resolve parents, locate nodes
// by id, and broadcast invalidation events.
type Orchestrator struct {
	providers   *Registry
	active      ActiveProviders
	cache       *Cache
	memo        *FailureMemo
	flights     flightGroup
	broadcaster *invalidationBroadcaster
	sorter      *nodeSorter
}

// NewOrchestrator creates an orchestrator over the given providers, filtered
// by the persisted allow-list. Pass AllActive{} to disable filtering.
func NewOrchestrator(providers *Registry, active ActiveProviders) *Orchestrator {
	if active == nil {
		active = AllActive{}
	}
	return &Orchestrator{
		providers:   providers,
		active:      active,
		cache:       NewCache(),
		memo:        NewFailureMemo(),
		broadcaster: newInvalidationBroadcaster(),
		sorter:      newNodeSorter(),
	}
}

// RootNodes reads the persisted allow-list, asks each active registered
// provider for its root node, registers the roots, and returns them sorted
// by id for deterministic UI ordering.
func (o *Orchestrator) RootNodes(ctx context.Context) ([]Node, error) {
	activeIDs, restricted, err := o.active.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to read active provider list: %w", err)
	}
	if !restricted {
		activeIDs = o.providers.IDs()
	}

	roots := make([]Node, 0, len(activeIDs))
	for _, providerID := range activeIDs {
		provider, ok := o.providers.Get(providerID)
		if !ok {
			logging.Warn("Orchestrator", "Allow-listed provider %s is not registered, skipping", providerID)
			continue
		}

		root, err := provider.RootNode(ctx, "")
		if err != nil {
			// A broken provider must not take the rest of the tree down.
			logging.Error("Orchestrator", err, "Provider %s failed to produce its root node", providerID)
			continue
		}

		if identity.OwningProviderID(root.ID()) != providerID {
			return nil, fmt.Errorf("provider %s returned root node %q outside its namespace", providerID, root.ID())
		}
		if err := o.validateResourceCarrier(providerID, root); err != nil {
			return nil, err
		}

		o.cache.RegisterRoot(root)
		roots = append(roots, root)
	}

	o.sorter.sortByID(roots)
	logging.Debug("Orchestrator", "Produced %d root nodes from %d active providers", len(roots), len(activeIDs))
	return roots, nil
}

// Children returns the children of a node. Leaf nodes yield nil. A node in
// the Failed state yields its memoized failure batch without touching the
// provider. Otherwise the node's own expansion runs under the per-node-id
// flight, its result is namespace-validated, registered, classified, and
// returned.
func (o *Orchestrator) Children(ctx context.Context, node Node) ([]Node, error) {
	if _, ok := node.(Expandable); !ok {
		return nil, nil
	}
	nodeID := node.ID()

	if batch, ok := o.memo.Get(nodeID); ok {
		logging.Info("Orchestrator", "Serving memoized error batch for %s (cached-error)", nodeID)
		return batch, nil
	}

	children, shared, err := o.flights.Do(ctx, nodeID, func() ([]Node, error) {
		return o.expand(ctx, node)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("Orchestrator", "Expansion of %s shared with a concurrent caller", nodeID)
	}
	return children, nil
}

// expand runs inside the flight for node's id: it invokes the node's own
// expansion, converts an expansion error into an ErrorNode placeholder
// batch, validates resource-id namespacing against the owning provider,
// registers the batch, and memoizes it when it is a failure batch.
func (o *Orchestrator) expand(ctx context.Context, node Node) ([]Node, error) {
	exp := node.(Expandable)
	nodeID := node.ID()

	children, err := exp.Expand(ctx)
	if err != nil {
		logging.Error("Orchestrator", err, "Expansion of %s failed", nodeID)
		children = []Node{NewErrorNode(nodeID, err)}
	}

	providerID := identity.OwningProviderID(nodeID)
	for _, child := range children {
		if _, isPlaceholder := child.(*ErrorNode); isPlaceholder {
			continue
		}
		if err := o.validateResourceCarrier(providerID, child); err != nil {
			return nil, err
		}
	}

	o.sorter.sortByID(children)

	// Re-resolve the parent through the id-keyed cache before mutating it;
	// the incoming object reference may be stale across redraws.
	parent := node
	if current, ok := o.cache.Node(nodeID); ok {
		parent = current
	}
	o.cache.RegisterChildren(parent, children)

	if IsFailureBatch(children) {
		o.memo.Remember(nodeID, children)
	}
	return children, nil
}

// validateResourceCarrier enforces the namespace invariant for nodes backed
// by a cross-cutting resource. The resulting NamespaceViolationError is a
// plugin-contract defect and aborts the operation that surfaced it.
func (o *Orchestrator) validateResourceCarrier(providerID string, node Node) error {
	carrier, ok := node.(ResourceCarrier)
	if !ok {
		return nil
	}
	if err := identity.ValidateResourceID(providerID, carrier.ResourceID()); err != nil {
		logging.Error("Orchestrator", err, "Provider %s violated the resource namespace contract", providerID)
		return err
	}
	return nil
}

// Parent returns the registered parent of a node. ok is false for roots,
// the terminal state of the host's reveal-ancestor-chain walk.
func (o *Orchestrator) Parent(node Node) (Node, bool) {
	return o.cache.Parent(node.ID())
}

// FindByID locates a node by tree id, re-expanding unmaterialized subtrees
// through the regular Children path as needed. A miss is not an error.
func (o *Orchestrator) FindByID(ctx context.Context, id string) (Node, bool, error) {
	return o.cache.FindByID(ctx, id, func(ctx context.Context, node Node) error {
		_, err := o.Children(ctx, node)
		return err
	})
}

// FindBySuffix resolves a position-independent id suffix (typically a
// namespaced resource id) to a cached tree node.
func (o *Orchestrator) FindBySuffix(suffix string) (Node, bool) {
	return o.cache.FindBySuffix(suffix)
}

// Refresh invalidates cached state. With a nil node the whole cache and
// every failure memo are dropped and a global invalidation event fires.
// With a node, its current registered identity is re-resolved by id (the
// host may hold a stale object reference), its cached subtree is cleared,
// the node itself stays registered so its children are re-fetched lazily,
// and a targeted invalidation event fires.
func (o *Orchestrator) Refresh(ctx context.Context, node Node) error {
	if node == nil {
		o.cache.Clear()
		o.memo.ResetAll()
		o.broadcaster.broadcast("", ReasonRefresh)
		logging.Info("Orchestrator", "Refreshed the whole tree")
		return nil
	}

	nodeID := node.ID()
	if _, ok := o.cache.Node(nodeID); !ok {
		// Never registered or already invalidated with an ancestor; there
		// is nothing to clear, but the host still wants a redraw.
		o.broadcaster.broadcast(nodeID, ReasonRefresh)
		return nil
	}

	removed, _ := o.cache.ResetSubtree(nodeID)
	o.memo.ResetMany(removed)
	o.memo.Reset(nodeID)
	o.broadcaster.broadcast(nodeID, ReasonRefresh)
	logging.Info("Orchestrator", "Refreshed %s (%d descendants invalidated)", nodeID, len(removed))
	return nil
}

// ResetNodeErrorState clears the failure memo for a node so its next
// expansion is attempted for real. This is the external retry signal.
func (o *Orchestrator) ResetNodeErrorState(nodeID string) {
	o.memo.Reset(nodeID)
	o.broadcaster.broadcast(nodeID, ReasonRetry)
}

// NotifyConfigChange invalidates the whole tree because the persisted
// provider allow-list changed, for example through an edit of the config
// file while serving.
func (o *Orchestrator) NotifyConfigChange() {
	o.cache.Clear()
	o.memo.ResetAll()
	o.broadcaster.broadcast("", ReasonConfigChange)
	logging.Info("Orchestrator", "Provider allow-list changed, tree invalidated")
}

// Subscribe registers an invalidation subscriber. The returned cancel
// function must be called when the subscriber goes away.
func (o *Orchestrator) Subscribe() (<-chan Invalidation, func()) {
	return o.broadcaster.subscribe()
}
