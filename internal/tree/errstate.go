package tree

import (
	"sync"

	"canopy/pkg/logging"
)

// FailureMemo caches the last child batch of nodes whose expansion produced
// a failure batch. Serving the memo keeps a broken branch stable across UI
// redraws instead of re-issuing the same doomed provider call on every
// redraw. An entry lives until the node's error state is explicitly reset
// (user-invoked retry) or the node's subtree is invalidated.
type FailureMemo struct {
	mu      sync.RWMutex
	batches map[string][]Node
}

// NewFailureMemo creates an empty failure memo.
func NewFailureMemo() *FailureMemo {
	return &FailureMemo{
		batches: make(map[string][]Node),
	}
}

// Remember stores children as the cached failure result for nodeID. The
// caller classifies the batch; Remember itself does not inspect it.
func (m *FailureMemo) Remember(nodeID string, children []Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[nodeID] = children
	logging.Debug("FailureMemo", "Memoized failure batch for %s (%d children)", nodeID, len(children))
}

// Get returns the cached failure batch for nodeID, if any.
func (m *FailureMemo) Get(nodeID string) ([]Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[nodeID]
	return batch, ok
}

// Reset clears the memo for nodeID so the next expansion is attempted for
// real. Driven by an explicit external retry signal.
func (m *FailureMemo) Reset(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[nodeID]; ok {
		delete(m.batches, nodeID)
		logging.Debug("FailureMemo", "Reset error state for %s", nodeID)
	}
}

// ResetMany clears the memo for every given node id. Used when an ancestor
// subtree is invalidated.
func (m *FailureMemo) ResetMany(nodeIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range nodeIDs {
		delete(m.batches, id)
	}
}

// ResetAll drops every memoized failure batch. Used on full-tree refresh.
func (m *FailureMemo) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = make(map[string][]Node)
}
