package tree

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// nodeSorter orders sibling nodes by id with a locale-aware, numeric-aware
// comparison, so "db2" sorts before "db10" and ordering is deterministic
// across redraws. collate.Collator buffers state internally and is not safe
// for concurrent use, hence the mutex.
type nodeSorter struct {
	mu       sync.Mutex
	collator *collate.Collator
}

func newNodeSorter() *nodeSorter {
	return &nodeSorter{
		collator: collate.New(language.Und, collate.Numeric, collate.Loose),
	}
}

// sortByID sorts nodes in place by their tree id.
func (s *nodeSorter) sortByID(nodes []Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(nodes, func(i, j int) bool {
		return s.collator.CompareString(nodes[i].ID(), nodes[j].ID()) < 0
	})
}
