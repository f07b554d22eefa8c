package tree

import (
	"context"
	"fmt"

	"canopy/internal/identity"
)

// Node is a unit of the discovery tree. Implementations are created by a
// provider on demand and owned by the orchestrator's caches until
// invalidated; an expansion always returns a fresh node list, never a shared
// mutable one.
//
// A Node that can have children additionally implements Expandable; a Node
// backed by a cross-cutting resource additionally implements ResourceCarrier.
type Node interface {
	// ID returns the hierarchical tree id of this node. The first path
	// segment is the id of the owning provider.
	ID() string

	// Label returns the human-readable name shown by the host UI.
	Label() string
}

// Expandable is implemented by nodes that have children. Leaf nodes simply
// do not implement it.
type Expandable interface {
	Node

	// Expand returns this node's children. It may block on provider I/O and
	// must honor ctx cancellation. Expand is never invoked concurrently for
	// the same node id; the orchestrator deduplicates callers.
	Expand(ctx context.Context) ([]Node, error)
}

// ResourceCarrier is implemented by nodes that are backed by a cross-cutting
// resource, one that may be referenced from multiple tree positions. The
// resource id must be namespaced with the owning provider's id; the
// orchestrator validates this on every child batch.
type ResourceCarrier interface {
	Node

	// ResourceID returns the namespaced, position-independent identifier of
	// the backing resource.
	ResourceID() string
}

// ErrorNode is the provider-agnostic failure placeholder. A child batch
// containing at least one ErrorNode is a failure batch: the orchestrator
// memoizes it and serves it on subsequent expansions until the error state
// is reset. Providers may also return ErrorNode children themselves to
// surface partial failures.
type ErrorNode struct {
	id      string
	message string
}

// NewErrorNode creates the placeholder child registered under a node whose
// expansion failed.
func NewErrorNode(parentID string, err error) *ErrorNode {
	return &ErrorNode{
		id:      identity.BuildChildID(parentID, "error"),
		message: err.Error(),
	}
}

// ID implements Node.
func (e *ErrorNode) ID() string { return e.id }

// Label implements Node.
func (e *ErrorNode) Label() string { return fmt.Sprintf("Error: %s", e.message) }

// Message returns the failure message without the label decoration.
func (e *ErrorNode) Message() string { return e.message }

// IsFailureBatch reports whether a child batch represents a failed
// expansion, that is, whether it contains an ErrorNode placeholder.
func IsFailureBatch(children []Node) bool {
	for _, c := range children {
		if _, ok := c.(*ErrorNode); ok {
			return true
		}
	}
	return false
}
