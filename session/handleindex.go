package session

import (
	"sort"

	"golang.org/x/net/html"
)

type entry struct {
	handle uint64
	node   *html.Node
}

// HandleIndex is a sorted-array index of element handles, binary
// searched on lookup and insert, mirroring the original renderer's
// sorted-array element table. A reverse map is kept alongside it so
// ForgetSubtree can resolve a node back to its handle in O(1) instead
// of a linear scan of the sorted array.
type HandleIndex struct {
	entries []entry
	byNode  map[*html.Node]uint64
}

// NewHandleIndex returns an empty index.
func NewHandleIndex() *HandleIndex {
	return &HandleIndex{byNode: make(map[*html.Node]uint64)}
}

// Insert adds node under handle, keeping entries sorted by handle. A
// handle value already present is replaced in place rather than
// duplicated, so a caller that re-inserts the same hvml:handle value
// (e.g. a stale Forget that was missed upstream) cannot leave two
// entries under one key.
func (idx *HandleIndex) Insert(handle uint64, node *html.Node) {
	i := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].handle >= handle })
	if i < len(idx.entries) && idx.entries[i].handle == handle {
		delete(idx.byNode, idx.entries[i].node)
		idx.entries[i].node = node
		idx.byNode[node] = handle
		return
	}
	idx.entries = append(idx.entries, entry{})
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = entry{handle: handle, node: node}
	idx.byNode[node] = handle
}

// Lookup resolves handle to its element, if still present.
func (idx *HandleIndex) Lookup(handle uint64) (*html.Node, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].handle >= handle })
	if i < len(idx.entries) && idx.entries[i].handle == handle {
		return idx.entries[i].node, true
	}
	return nil, false
}

// HandleOf returns the handle a node was assigned, if indexed.
func (idx *HandleIndex) HandleOf(node *html.Node) (uint64, bool) {
	h, ok := idx.byNode[node]
	return h, ok
}

// Remove drops handle from the index.
func (idx *HandleIndex) Remove(handle uint64) {
	i := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].handle >= handle })
	if i >= len(idx.entries) || idx.entries[i].handle != handle {
		return
	}
	delete(idx.byNode, idx.entries[i].node)
	idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
}

// Len reports the number of indexed handles.
func (idx *HandleIndex) Len() int {
	return len(idx.entries)
}
