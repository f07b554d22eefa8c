package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeSorterNumericAware(t *testing.T) {
	s := newNodeSorter()
	nodes := []Node{
		&staticNode{id: "acme/db10"},
		&staticNode{id: "acme/db9"},
		&staticNode{id: "acme/db100"},
		&staticNode{id: "acme/db1"},
	}

	s.sortByID(nodes)

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	assert.Equal(t, []string{"acme/db1", "acme/db9", "acme/db10", "acme/db100"}, ids)
}

func TestNodeSorterCaseInsensitive(t *testing.T) {
	s := newNodeSorter()
	nodes := []Node{
		&staticNode{id: "Beta"},
		&staticNode{id: "acme"},
	}

	s.sortByID(nodes)

	assert.Equal(t, "acme", nodes[0].ID())
	assert.Equal(t, "Beta", nodes[1].ID())
}
