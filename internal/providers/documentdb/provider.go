// Package documentdb contributes a DocumentDB-shaped discovery hierarchy to
// the tree engine: an account root expanding into clusters, databases, and
// collections.
//
// The provider is backed by an in-memory Topology instead of a live driver;
// the engine treats providers as opaque producers of nodes, and a static
// topology keeps `canopy tree` and the engine tests independent of any
// backend.
package documentdb

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"canopy/internal/identity"
	"canopy/internal/tree"
)

// Topology describes the resource hierarchy the provider serves.
type Topology struct {
	Clusters []Cluster `yaml:"clusters"`
}

// Cluster is a named cluster with its databases.
type Cluster struct {
	Name      string     `yaml:"name"`
	Databases []Database `yaml:"databases"`
}

// Database is a named database with its collections.
type Database struct {
	Name        string   `yaml:"name"`
	Collections []string `yaml:"collections"`
}

// LoadTopology parses a YAML topology definition.
func LoadTopology(data []byte) (Topology, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return Topology{}, fmt.Errorf("failed to parse topology: %w", err)
	}
	return topo, nil
}

// SampleTopology returns the built-in demo hierarchy.
func SampleTopology() Topology {
	return Topology{
		Clusters: []Cluster{
			{
				Name: "cluster-east",
				Databases: []Database{
					{Name: "inventory", Collections: []string{"products", "warehouses"}},
					{Name: "orders", Collections: []string{"open", "fulfilled"}},
				},
			},
			{
				Name: "cluster-west",
				Databases: []Database{
					{Name: "analytics", Collections: []string{"events"}},
				},
			},
		},
	}
}

// Provider implements tree.Provider over a Topology.
type Provider struct {
	id   string
	topo Topology
}

// New creates a provider with the given id serving the given topology.
func New(id string, topo Topology) *Provider {
	return &Provider{id: id, topo: topo}
}

// ID implements tree.Provider.
func (p *Provider) ID() string { return p.id }

// RootNode implements tree.Provider.
func (p *Provider) RootNode(ctx context.Context, parentPath string) (tree.Node, error) {
	return &rootNode{
		id:       identity.BuildChildID(parentPath, p.id),
		provider: p,
	}, nil
}

// rootNode is the provider's account root; expanding it lists clusters.
type rootNode struct {
	id       string
	provider *Provider
}

func (n *rootNode) ID() string { return n.id }

func (n *rootNode) Label() string { return fmt.Sprintf("DocumentDB (%s)", n.provider.id) }

func (n *rootNode) Expand(ctx context.Context) ([]tree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children := make([]tree.Node, 0, len(n.provider.topo.Clusters))
	for _, cluster := range n.provider.topo.Clusters {
		resourceID, err := identity.NamespaceResourceID(n.provider.id, cluster.Name)
		if err != nil {
			return nil, err
		}
		children = append(children, &clusterNode{
			id:         identity.BuildChildID(n.id, cluster.Name),
			resourceID: resourceID,
			cluster:    cluster,
		})
	}
	return children, nil
}

// clusterNode is a cluster; it carries the namespaced resource id of the
// backing cluster so the same cluster can be located from any tree position
// that references it.
type clusterNode struct {
	id         string
	resourceID string
	cluster    Cluster
}

func (n *clusterNode) ID() string { return n.id }

func (n *clusterNode) Label() string { return n.cluster.Name }

func (n *clusterNode) ResourceID() string { return n.resourceID }

func (n *clusterNode) Expand(ctx context.Context) ([]tree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children := make([]tree.Node, 0, len(n.cluster.Databases))
	for _, db := range n.cluster.Databases {
		children = append(children, &databaseNode{
			id:       identity.BuildChildID(n.id, db.Name),
			database: db,
		})
	}
	return children, nil
}

// databaseNode is a database; expanding it lists collection leaves.
type databaseNode struct {
	id       string
	database Database
}

func (n *databaseNode) ID() string { return n.id }

func (n *databaseNode) Label() string { return n.database.Name }

func (n *databaseNode) Expand(ctx context.Context) ([]tree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	children := make([]tree.Node, 0, len(n.database.Collections))
	for _, name := range n.database.Collections {
		children = append(children, &collectionNode{
			id:   identity.BuildChildID(n.id, name),
			name: name,
		})
	}
	return children, nil
}

// collectionNode is a leaf.
type collectionNode struct {
	id   string
	name string
}

func (n *collectionNode) ID() string { return n.id }

func (n *collectionNode) Label() string { return n.name }
