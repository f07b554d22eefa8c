package tree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"canopy/pkg/logging"
)

// maxFindDepth bounds the breadth-first walk performed by FindByID when the
// target id is not cached. Discovery hierarchies are shallow (provider /
// cluster / database / collection); anything deeper indicates a runaway
// provider and is not worth expanding during a lookup.
const maxFindDepth = 16

// cacheEntry records what is known about a registered node: the node object
// last returned by its provider, its parent edge, and the ordered ids of its
// last known children.
type cacheEntry struct {
	node     Node
	parent   string // "" for roots
	isRoot   bool
	children []string
	// expanded is true once a child batch has been registered for this
	// node, even an empty one. FindByID only re-expands nodes whose
	// subtree was never materialized.
	expanded bool
}

// Cache is the in-memory parent/child relationship index.
//
// Invariant: edges are always bidirectional. If an entry records a parent,
// that parent's child list contains the entry's id, and vice versa. Every
// mutation that would break one direction removes both under the same
// critical section, so a dangling edge can never be observed.
//
// The cache stores back-references for lookup only; it does not own the
// nodes beyond keeping the most recently registered object for each id so
// that id-based lookups survive the host replacing its object graph between
// redraws.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	roots   []string
}

// NewCache creates an empty relationship cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
	}
}

// RegisterRoot inserts or refreshes a node with no parent.
func (c *Cache) RegisterRoot(node Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := node.ID()
	entry, ok := c.entries[id]
	if !ok {
		entry = &cacheEntry{}
		c.entries[id] = entry
	}
	entry.node = node
	if entry.parent != "" {
		c.detachFromParentLocked(id, entry.parent)
		entry.parent = ""
	}
	if !entry.isRoot {
		entry.isRoot = true
		c.roots = append(c.roots, id)
	}
}

// RegisterRelationship inserts or overwrites the child-to-parent edge and
// appends the child to the parent's child list if absent. Repeat calls with
// the same pair are idempotent. If the child was previously attached to a
// different parent, the old edge is removed in the same critical section.
func (c *Cache) RegisterRelationship(parent, child Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registerRelationshipLocked(parent, child)
}

// RegisterChildren registers a full child batch for a node and marks the
// node's subtree as materialized. This is the registration path used after
// an expansion.
func (c *Cache) RegisterChildren(parent Node, children []Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, child := range children {
		c.registerRelationshipLocked(parent, child)
	}
	if entry, ok := c.entries[parent.ID()]; ok {
		entry.expanded = true
	}
}

func (c *Cache) registerRelationshipLocked(parent, child Node) {
	parentID, childID := parent.ID(), child.ID()

	parentEntry, ok := c.entries[parentID]
	if !ok {
		parentEntry = &cacheEntry{}
		c.entries[parentID] = parentEntry
	}
	parentEntry.node = parent

	childEntry, ok := c.entries[childID]
	if !ok {
		childEntry = &cacheEntry{}
		c.entries[childID] = childEntry
	}
	childEntry.node = child

	if childEntry.parent != "" && childEntry.parent != parentID {
		c.detachFromParentLocked(childID, childEntry.parent)
	}
	childEntry.parent = parentID

	for _, existing := range parentEntry.children {
		if existing == childID {
			return
		}
	}
	parentEntry.children = append(parentEntry.children, childID)
}

// detachFromParentLocked removes childID from its recorded parent's child
// list. Caller holds the write lock.
func (c *Cache) detachFromParentLocked(childID, parentID string) {
	parentEntry, ok := c.entries[parentID]
	if !ok {
		return
	}
	for i, existing := range parentEntry.children {
		if existing == childID {
			parentEntry.children = append(parentEntry.children[:i], parentEntry.children[i+1:]...)
			return
		}
	}
}

// Node returns the cached node for an id.
func (c *Cache) Node(id string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return entry.node, true
}

// Parent returns the cached parent of the node with the given id. ok is
// false for roots and for unregistered ids.
func (c *Cache) Parent(id string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || entry.parent == "" {
		return nil, false
	}
	parentEntry, ok := c.entries[entry.parent]
	if !ok {
		return nil, false
	}
	return parentEntry.node, true
}

// ChildIDs returns the ordered ids of the last known children of a node.
func (c *Cache) ChildIDs(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil
	}
	out := make([]string, len(entry.children))
	copy(out, entry.children)
	return out
}

// Roots returns the registered root nodes in registration order.
func (c *Cache) Roots() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Node, 0, len(c.roots))
	for _, id := range c.roots {
		if entry, ok := c.entries[id]; ok {
			out = append(out, entry.node)
		}
	}
	return out
}

// Len returns the number of registered nodes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops the whole cache. Used on full-tree refresh.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.roots = nil
	logging.Debug("TreeCache", "Cleared all cached relationships")
}

// ClearSubtree removes the node with the given id, its parent edge, and
// recursively every descendant reachable through the cached child lists.
// It returns the removed ids so the caller can drop dependent state (for
// example failure memos) for the same subtree.
func (c *Cache) ClearSubtree(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil
	}
	if entry.parent != "" {
		c.detachFromParentLocked(id, entry.parent)
	}
	if entry.isRoot {
		c.removeRootLocked(id)
	}
	removed := c.deleteSubtreeLocked(id)
	logging.Debug("TreeCache", "Cleared subtree %s (%d nodes)", id, len(removed))
	return removed
}

// ResetSubtree drops the descendants and child list of the node with the
// given id but keeps the node itself registered with its parent edge, with
// its subtree marked unmaterialized. Children are re-fetched lazily on the
// next expansion. Returns the removed descendant ids; ok is false when the
// id is not registered.
func (c *Cache) ResetSubtree(id string) (removed []string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[id]
	if !exists {
		return nil, false
	}
	for _, childID := range entry.children {
		removed = append(removed, c.deleteSubtreeLocked(childID)...)
	}
	entry.children = nil
	entry.expanded = false
	return removed, true
}

// deleteSubtreeLocked deletes id and all cached descendants. Caller holds
// the write lock and has already detached id from its parent.
func (c *Cache) deleteSubtreeLocked(id string) []string {
	entry, ok := c.entries[id]
	if !ok {
		return nil
	}
	removed := []string{id}
	children := entry.children
	delete(c.entries, id)
	for _, childID := range children {
		removed = append(removed, c.deleteSubtreeLocked(childID)...)
	}
	return removed
}

func (c *Cache) removeRootLocked(id string) {
	for i, rootID := range c.roots {
		if rootID == id {
			c.roots = append(c.roots[:i], c.roots[i+1:]...)
			return
		}
	}
}

// ExpandFunc re-invokes a node's own expansion, populating the cache as a
// side effect. FindByID calls it only on nodes whose subtree has not been
// materialized yet.
type ExpandFunc func(ctx context.Context, node Node) error

// FindByID locates a node by tree id. It first attempts a cache-only
// lookup; on a miss it walks breadth-first from the cached roots, invoking
// expand on unmaterialized expandable nodes, stopping as soon as the id is
// found or every reachable node within the depth bound has been visited.
//
// A nil expand restricts the walk to what is already cached. A miss is not
// an error: the id may belong to a subtree that is legitimately unexpanded.
func (c *Cache) FindByID(ctx context.Context, id string, expand ExpandFunc) (Node, bool, error) {
	if node, ok := c.Node(id); ok {
		return node, true, nil
	}

	type item struct {
		id    string
		depth int
	}

	c.mu.RLock()
	queue := make([]item, 0, len(c.roots))
	for _, rootID := range c.roots {
		queue = append(queue, item{id: rootID})
	}
	c.mu.RUnlock()

	visited := make(map[string]bool)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current.id] {
			continue
		}
		visited[current.id] = true

		c.mu.RLock()
		entry, ok := c.entries[current.id]
		var node Node
		var expanded bool
		if ok {
			node = entry.node
			expanded = entry.expanded
		}
		c.mu.RUnlock()
		if !ok {
			continue
		}

		if current.id == id {
			return node, true, nil
		}
		if current.depth >= maxFindDepth {
			continue
		}

		if !expanded && expand != nil {
			if _, isExpandable := node.(Expandable); isExpandable {
				if err := expand(ctx, node); err != nil {
					return nil, false, err
				}
			}
		}

		for _, childID := range c.ChildIDs(current.id) {
			if !visited[childID] {
				queue = append(queue, item{id: childID, depth: current.depth + 1})
			}
		}
	}
	return nil, false, nil
}

// FindBySuffix scans the cached node ids for one ending in suffix. It
// resolves a position-independent resource id to its tree node without the
// caller knowing the hierarchical path. Matches are resolved in sorted id
// order so repeated calls are deterministic.
func (c *Cache) FindBySuffix(suffix string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []string
	for id := range c.entries {
		if strings.HasSuffix(id, suffix) {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return c.entries[matches[0]].node, true
}
