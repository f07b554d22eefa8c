package tree

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"canopy/pkg/logging"
)

// InvalidationReason describes why a subtree was invalidated.
type InvalidationReason string

const (
	// ReasonRefresh indicates a caller-driven refresh of a node or of the
	// whole tree.
	ReasonRefresh InvalidationReason = "Refresh"

	// ReasonRetry indicates an explicit reset of a node's error state.
	ReasonRetry InvalidationReason = "Retry"

	// ReasonConfigChange indicates the persisted provider allow-list
	// changed out from under the running tree.
	ReasonConfigChange InvalidationReason = "ConfigChange"
)

// Invalidation asks the host to redraw a subtree. A zero NodeID addresses
// the whole tree. The event id correlates host redraws with engine logs.
type Invalidation struct {
	ID     string
	NodeID string
	Reason InvalidationReason
	Time   time.Time
}

// invalidationBroadcaster fans invalidation events out to subscribers.
// Sends never block: a subscriber that stops draining its channel loses
// events rather than wedging cache mutations, which is acceptable because
// a host that missed a targeted event recovers on its next full redraw.
type invalidationBroadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Invalidation
	next int
}

const subscriberBufferSize = 16

func newInvalidationBroadcaster() *invalidationBroadcaster {
	return &invalidationBroadcaster{
		subs: make(map[int]chan Invalidation),
	}
}

// subscribe registers a new subscriber and returns its channel together
// with an unsubscribe function.
func (b *invalidationBroadcaster) subscribe() (<-chan Invalidation, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Invalidation, subscriberBufferSize)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// broadcast fires an invalidation event for nodeID ("" for the whole tree).
func (b *invalidationBroadcaster) broadcast(nodeID string, reason InvalidationReason) {
	event := Invalidation{
		ID:     uuid.NewString(),
		NodeID: nodeID,
		Reason: reason,
		Time:   time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			logging.Warn("Orchestrator", "Dropping invalidation event %s: subscriber not draining", event.ID)
		}
	}
}
