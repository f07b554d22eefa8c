package documentdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/identity"
	"canopy/internal/tree"
)

func TestProviderHierarchy(t *testing.T) {
	p := New("docdb", SampleTopology())
	ctx := context.Background()

	root, err := p.RootNode(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "docdb", root.ID())

	clusters, err := root.(tree.Expandable).Expand(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, "docdb/cluster-east", clusters[0].ID())

	carrier, ok := clusters[0].(tree.ResourceCarrier)
	require.True(t, ok)
	assert.Equal(t, "docdb_cluster-east", carrier.ResourceID())
	require.NoError(t, identity.ValidateResourceID("docdb", carrier.ResourceID()))

	databases, err := clusters[0].(tree.Expandable).Expand(ctx)
	require.NoError(t, err)
	require.Len(t, databases, 2)
	assert.Equal(t, "docdb/cluster-east/inventory", databases[0].ID())

	collections, err := databases[0].(tree.Expandable).Expand(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "docdb/cluster-east/inventory/products", collections[0].ID())

	// Collections are leaves.
	_, expandable := collections[0].(tree.Expandable)
	assert.False(t, expandable)
}

func TestProviderMountedUnderParentPath(t *testing.T) {
	p := New("docdb", SampleTopology())

	root, err := p.RootNode(context.Background(), "accounts")
	require.NoError(t, err)
	assert.Equal(t, "accounts/docdb", root.ID())
}

func TestLoadTopology(t *testing.T) {
	data := []byte(`
clusters:
  - name: c1
    databases:
      - name: db1
        collections: [users]
`)
	topo, err := LoadTopology(data)
	require.NoError(t, err)
	require.Len(t, topo.Clusters, 1)
	assert.Equal(t, "c1", topo.Clusters[0].Name)
	assert.Equal(t, []string{"users"}, topo.Clusters[0].Databases[0].Collections)

	_, err = LoadTopology([]byte("{broken"))
	assert.Error(t, err)
}

func TestProviderExpandHonorsContext(t *testing.T) {
	p := New("docdb", SampleTopology())
	root, err := p.RootNode(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = root.(tree.Expandable).Expand(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
