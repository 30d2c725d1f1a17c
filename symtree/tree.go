package symtree

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Tree is a frozen, size-aggregated symbol hierarchy. It is safe for concurrent readers.
type Tree struct {
	root       *Node
	groups     []SymbolGroup
	groupIndex map[string]int
	stats      BuildStats
}

// Root returns the sentinel root node (empty segment name).
func (t *Tree) Root() *Node { return t.root }

// TotalSize is the aggregated size of the root.
func (t *Tree) TotalSize() int64 { return t.root.aggregated }

// Stats reports how the input rows were consumed.
func (t *Tree) Stats() BuildStats { return t.stats }

// Groups returns the variant groups in discovery order. The slice must not be modified.
func (t *Tree) Groups() []SymbolGroup { return t.groups }

// Group looks up a variant group by its stripped base name.
func (t *Tree) Group(base string) (SymbolGroup, bool) {
	i, ok := t.groupIndex[base]
	if !ok {
		return SymbolGroup{}, false
	}
	return t.groups[i], true
}

// LargestGroups returns up to n groups with more than one member, by total size.
func (t *Tree) LargestGroups(n int) []SymbolGroup {
	var multi []SymbolGroup
	for _, g := range t.groups {
		if g.MemberCount > 1 {
			multi = append(multi, g)
		}
	}
	sort.SliceStable(multi, func(i, j int) bool {
		return multi[i].TotalSize > multi[j].TotalSize
	})
	if n >= 0 && len(multi) > n {
		multi = multi[:n]
	}
	return multi
}

// Walk visits nodes depth-first in child order, root first at depth 0.
// Returning false from fn skips that node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.sorted {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Find resolves a full path key to its node.
func (t *Tree) Find(segments ...string) (*Node, bool) {
	n := t.root
	for _, s := range segments {
		c, ok := n.children[s]
		if !ok {
			return nil, false
		}
		n = c
	}
	return n, true
}

// Fingerprint hashes the tree's structure, sizes and counts. Two builds of the same rows
// produce the same fingerprint.
func (t *Tree) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	t.Walk(func(n *Node, depth int) bool {
		writeInt(int64(depth))
		writeInt(int64(len(n.segment)))
		_, _ = h.WriteString(n.segment)
		writeInt(int64(len(n.originalName)))
		_, _ = h.WriteString(n.originalName)
		writeInt(n.ownSize)
		writeInt(n.aggregated)
		writeInt(n.instantiation)
		writeInt(int64(len(n.children)))
		return true
	})
	return h.Sum64()
}
