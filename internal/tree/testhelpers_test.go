package tree

import (
	"context"
	"sync"
)

// staticNode is a plain leaf fixture.
type staticNode struct {
	id    string
	label string
}

func (n *staticNode) ID() string { return n.id }

func (n *staticNode) Label() string {
	if n.label != "" {
		return n.label
	}
	return n.id
}

// resourceLeaf is a leaf backed by a cross-cutting resource.
type resourceLeaf struct {
	staticNode
	resourceID string
}

func (n *resourceLeaf) ResourceID() string { return n.resourceID }

// expandableNode is an expandable fixture that counts expansion calls and
// can optionally block until released, to simulate a network-bound provider.
type expandableNode struct {
	staticNode
	mu       sync.Mutex
	calls    int
	block    chan struct{}
	expandFn func(ctx context.Context) ([]Node, error)
}

func (n *expandableNode) Expand(ctx context.Context) ([]Node, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()

	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return n.expandFn(ctx)
}

func (n *expandableNode) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// expandableResource is an expandable node that also carries a resource id.
type expandableResource struct {
	expandableNode
	resourceID string
}

func (n *expandableResource) ResourceID() string { return n.resourceID }

// fakeProvider returns a fixed root node (or error).
type fakeProvider struct {
	id   string
	root Node
	err  error
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) RootNode(ctx context.Context, parentPath string) (Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.root, nil
}

// fakeAllowList is an injected ActiveProviders fake.
type fakeAllowList struct {
	ids []string
	ok  bool
	err error
}

func (f *fakeAllowList) Active() ([]string, bool, error) {
	return f.ids, f.ok, f.err
}
