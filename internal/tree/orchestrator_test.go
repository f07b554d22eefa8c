package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/identity"
)

func newTestOrchestrator(t *testing.T, providers ...Provider) *Orchestrator {
	t.Helper()
	registry := NewRegistry()
	for _, p := range providers {
		require.NoError(t, registry.Register(p))
	}
	return NewOrchestrator(registry, AllActive{})
}

func TestRootNodesExposesNamespacedResourceID(t *testing.T) {
	resourceID, err := identity.NamespaceResourceID("acme", "cluster-1")
	require.NoError(t, err)

	root := &expandableResource{
		expandableNode: expandableNode{staticNode: staticNode{id: "acme", label: "Acme"}},
		resourceID:     resourceID,
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: root})

	roots, err := o.RootNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)

	carrier, ok := roots[0].(ResourceCarrier)
	require.True(t, ok)
	assert.Equal(t, "acme_cluster-1", carrier.ResourceID())

	providerID, ok := identity.ExtractProviderID(carrier.ResourceID())
	require.True(t, ok)
	assert.Equal(t, "acme", providerID)
}

func TestRootNodesFiltersByAllowList(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeProvider{id: "acme", root: &staticNode{id: "acme"}}))
	require.NoError(t, registry.Register(&fakeProvider{id: "beta", root: &staticNode{id: "beta"}}))

	o := NewOrchestrator(registry, &fakeAllowList{ids: []string{"beta", "ghost"}, ok: true})

	roots, err := o.RootNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "beta", roots[0].ID())
}

func TestRootNodesDefaultsToAllProviders(t *testing.T) {
	o := newTestOrchestrator(t,
		&fakeProvider{id: "acme", root: &staticNode{id: "acme"}},
		&fakeProvider{id: "beta", root: &staticNode{id: "beta"}},
	)

	roots, err := o.RootNodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func TestRootNodesNumericAwareOrder(t *testing.T) {
	o := newTestOrchestrator(t,
		&fakeProvider{id: "db10", root: &staticNode{id: "db10"}},
		&fakeProvider{id: "db2", root: &staticNode{id: "db2"}},
		&fakeProvider{id: "db1", root: &staticNode{id: "db1"}},
	)

	roots, err := o.RootNodes(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(roots))
	for i, r := range roots {
		ids[i] = r.ID()
	}
	assert.Equal(t, []string{"db1", "db2", "db10"}, ids)
}

func TestRootNodesSkipsBrokenProvider(t *testing.T) {
	o := newTestOrchestrator(t,
		&fakeProvider{id: "acme", root: &staticNode{id: "acme"}},
		&fakeProvider{id: "beta", err: errors.New("backend unreachable")},
	)

	roots, err := o.RootNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "acme", roots[0].ID())
}

func TestRootNodesRejectsForeignNamespace(t *testing.T) {
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: &staticNode{id: "beta"}})

	_, err := o.RootNodes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme")
	assert.Contains(t, err.Error(), "beta")
}

func TestChildrenOfLeafIsNil(t *testing.T) {
	o := newTestOrchestrator(t)

	children, err := o.Children(context.Background(), &staticNode{id: "acme/leaf"})
	require.NoError(t, err)
	assert.Nil(t, children)
}

func TestChildrenRegistersRelationships(t *testing.T) {
	child := &staticNode{id: "acme/cluster-1"}
	root := &expandableNode{staticNode: staticNode{id: "acme"}}
	root.expandFn = func(context.Context) ([]Node, error) {
		return []Node{child}, nil
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: root})

	_, err := o.RootNodes(context.Background())
	require.NoError(t, err)

	children, err := o.Children(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, children, 1)

	parent, ok := o.Parent(child)
	require.True(t, ok)
	assert.Equal(t, "acme", parent.ID())
}

func TestChildrenDeduplicatesConcurrentExpansions(t *testing.T) {
	node := &expandableNode{
		staticNode: staticNode{id: "acme/cluster-1"},
		block:      make(chan struct{}),
	}
	node.expandFn = func(context.Context) ([]Node, error) {
		return []Node{&staticNode{id: "acme/cluster-1/db1"}}, nil
	}
	o := newTestOrchestrator(t)

	const callers = 5
	results := make([][]Node, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = o.Children(context.Background(), node)
		}(i)
	}

	// Give every caller time to join the pending flight, then release it.
	time.Sleep(100 * time.Millisecond)
	close(node.block)
	wg.Wait()

	assert.Equal(t, 1, node.callCount(), "underlying expansion must run exactly once")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
		assert.Equal(t, "acme/cluster-1/db1", results[i][0].ID())
	}
}

func TestChildrenNamespaceViolation(t *testing.T) {
	// Provider "beta" returns a child namespaced with "wrong".
	offender := &resourceLeaf{
		staticNode: staticNode{id: "beta/cluster-9"},
		resourceID: "wrong_cluster-9",
	}
	root := &expandableNode{staticNode: staticNode{id: "beta"}}
	root.expandFn = func(context.Context) ([]Node, error) {
		return []Node{offender}, nil
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "beta", root: root})

	_, err := o.RootNodes(context.Background())
	require.NoError(t, err)

	_, err = o.Children(context.Background(), root)
	require.Error(t, err)
	assert.True(t, identity.IsNamespaceViolation(err))
	assert.Contains(t, err.Error(), "wrong_cluster-9")
	assert.Contains(t, err.Error(), "beta")
}

func TestChildrenMemoizesFailureBatch(t *testing.T) {
	node := &expandableNode{staticNode: staticNode{id: "acme/cluster-1"}}
	node.expandFn = func(context.Context) ([]Node, error) {
		return nil, errors.New("credentials expired")
	}
	o := newTestOrchestrator(t)

	first, err := o.Children(context.Background(), node)
	require.NoError(t, err, "expansion failures must not escape the tree contract")
	require.Len(t, first, 1)
	placeholder, ok := first[0].(*ErrorNode)
	require.True(t, ok)
	assert.Equal(t, "credentials expired", placeholder.Message())

	// A redraw-triggered second call serves the identical memoized batch
	// without touching the provider again.
	second, err := o.Children(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 1, node.callCount())
	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])

	// The explicit retry signal clears the memo; the next call expands for
	// real.
	o.ResetNodeErrorState(node.ID())
	_, err = o.Children(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 2, node.callCount())
}

func TestChildrenRecognizesProviderPlaceholder(t *testing.T) {
	// A provider may surface a partial failure by returning an ErrorNode
	// itself; the batch is classified and memoized all the same.
	node := &expandableNode{staticNode: staticNode{id: "acme/cluster-1"}}
	node.expandFn = func(context.Context) ([]Node, error) {
		return []Node{NewErrorNode("acme/cluster-1", errors.New("partial listing"))}, nil
	}
	o := newTestOrchestrator(t)

	_, err := o.Children(context.Background(), node)
	require.NoError(t, err)
	_, err = o.Children(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, 1, node.callCount())
}

func TestRefreshClearsSubtree(t *testing.T) {
	a := &staticNode{id: "acme/n/a"}
	b := &staticNode{id: "acme/n/b"}
	n := &expandableNode{staticNode: staticNode{id: "acme/n"}}
	n.expandFn = func(context.Context) ([]Node, error) {
		return []Node{a, b}, nil
	}
	root := &expandableNode{staticNode: staticNode{id: "acme"}}
	root.expandFn = func(context.Context) ([]Node, error) {
		return []Node{n}, nil
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: root})

	ctx := context.Background()
	_, err := o.RootNodes(ctx)
	require.NoError(t, err)
	_, err = o.Children(ctx, root)
	require.NoError(t, err)
	_, err = o.Children(ctx, n)
	require.NoError(t, err)

	require.NoError(t, o.Refresh(ctx, n))

	// Cache-only lookup: the cleared descendant is gone until N is
	// expanded again.
	_, found, err := o.cache.FindByID(ctx, a.ID(), nil)
	require.NoError(t, err)
	assert.False(t, found)

	// N itself stays registered with its parent edge.
	parent, ok := o.Parent(n)
	require.True(t, ok)
	assert.Equal(t, "acme", parent.ID())

	// The next expansion repopulates the subtree.
	_, err = o.Children(ctx, n)
	require.NoError(t, err)
	_, found, err = o.cache.FindByID(ctx, a.ID(), nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, n.callCount())
}

func TestRefreshResolvesStaleReference(t *testing.T) {
	child := &staticNode{id: "acme/n/a"}
	n := &expandableNode{staticNode: staticNode{id: "acme/n"}}
	n.expandFn = func(context.Context) ([]Node, error) {
		return []Node{child}, nil
	}
	o := newTestOrchestrator(t)
	o.cache.RegisterRoot(&staticNode{id: "acme"})
	o.cache.RegisterRelationship(&staticNode{id: "acme"}, n)

	ctx := context.Background()
	_, err := o.Children(ctx, n)
	require.NoError(t, err)

	// The host redraws and now holds a different object with the same id.
	stale := &expandableNode{staticNode: staticNode{id: "acme/n"}}
	stale.expandFn = n.expandFn
	require.NoError(t, o.Refresh(ctx, stale))

	_, found, err := o.cache.FindByID(ctx, child.ID(), nil)
	require.NoError(t, err)
	assert.False(t, found, "refresh keyed by id must clear the subtree regardless of object identity")
}

func TestRefreshAll(t *testing.T) {
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: &staticNode{id: "acme"}})

	ctx := context.Background()
	_, err := o.RootNodes(ctx)
	require.NoError(t, err)

	events, cancel := o.Subscribe()
	defer cancel()

	require.NoError(t, o.Refresh(ctx, nil))
	assert.Equal(t, 0, o.cache.Len())

	select {
	case event := <-events:
		assert.Equal(t, "", event.NodeID)
		assert.Equal(t, ReasonRefresh, event.Reason)
		assert.NotEmpty(t, event.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a global invalidation event")
	}
}

func TestResetNodeErrorStateFiresRetryEvent(t *testing.T) {
	o := newTestOrchestrator(t)

	events, cancel := o.Subscribe()
	defer cancel()

	o.ResetNodeErrorState("acme/cluster-1")

	select {
	case event := <-events:
		assert.Equal(t, "acme/cluster-1", event.NodeID)
		assert.Equal(t, ReasonRetry, event.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected a targeted invalidation event")
	}
}

func TestRefreshSubtreeClearsFailureMemos(t *testing.T) {
	failing := &expandableNode{staticNode: staticNode{id: "acme/n/bad"}}
	failing.expandFn = func(context.Context) ([]Node, error) {
		return nil, errors.New("boom")
	}
	n := &expandableNode{staticNode: staticNode{id: "acme/n"}}
	n.expandFn = func(context.Context) ([]Node, error) {
		return []Node{failing}, nil
	}
	o := newTestOrchestrator(t)
	o.cache.RegisterRoot(&staticNode{id: "acme"})
	o.cache.RegisterRelationship(&staticNode{id: "acme"}, n)

	ctx := context.Background()
	_, err := o.Children(ctx, n)
	require.NoError(t, err)
	_, err = o.Children(ctx, failing)
	require.NoError(t, err)
	_, ok := o.memo.Get(failing.ID())
	require.True(t, ok)

	// Invalidating the ancestor drops the descendant's failure memo too.
	require.NoError(t, o.Refresh(ctx, n))
	_, ok = o.memo.Get(failing.ID())
	assert.False(t, ok)
}

func TestFindByIDThroughOrchestrator(t *testing.T) {
	db := &staticNode{id: "acme/cluster-1/db1"}
	cluster := &expandableNode{staticNode: staticNode{id: "acme/cluster-1"}}
	cluster.expandFn = func(context.Context) ([]Node, error) {
		return []Node{db}, nil
	}
	root := &expandableNode{staticNode: staticNode{id: "acme"}}
	root.expandFn = func(context.Context) ([]Node, error) {
		return []Node{cluster}, nil
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: root})

	ctx := context.Background()
	_, err := o.RootNodes(ctx)
	require.NoError(t, err)

	node, found, err := o.FindByID(ctx, "acme/cluster-1/db1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "acme/cluster-1/db1", node.ID())

	_, found, err = o.FindByID(ctx, "acme/cluster-1/nope")
	require.NoError(t, err)
	assert.False(t, found, "a lookup miss is not an error")
}

func TestFindBySuffixResolvesResourceID(t *testing.T) {
	resourceID, err := identity.NamespaceResourceID("acme", "cluster-1")
	require.NoError(t, err)

	cluster := &resourceLeaf{
		staticNode: staticNode{id: identity.BuildChildID("acme", resourceID)},
		resourceID: resourceID,
	}
	root := &expandableNode{staticNode: staticNode{id: "acme"}}
	root.expandFn = func(context.Context) ([]Node, error) {
		return []Node{cluster}, nil
	}
	o := newTestOrchestrator(t, &fakeProvider{id: "acme", root: root})

	ctx := context.Background()
	_, err = o.RootNodes(ctx)
	require.NoError(t, err)
	_, err = o.Children(ctx, root)
	require.NoError(t, err)

	node, found := o.FindBySuffix(resourceID)
	require.True(t, found)
	assert.Equal(t, "acme/acme_cluster-1", node.ID())
}

func TestRegistryRejectsInvalidProviderID(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name       string
		providerID string
	}{
		{name: "namespace separator", providerID: "ac_me"},
		{name: "path separator", providerID: "ac/me"},
		{name: "empty", providerID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(&fakeProvider{id: tt.providerID})
			require.Error(t, err)
			assert.True(t, identity.IsInvalidProviderID(err))
		})
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeProvider{id: "acme"}))
	err := registry.Register(&fakeProvider{id: "acme"})
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("provider %s already registered", "acme"), err.Error())
}
