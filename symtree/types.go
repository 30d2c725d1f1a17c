package symtree

import (
	"sort"
	"strings"
)

// RawRow is one decoded row of a size-profiler export before validation.
// Values arrive exactly as the decoder produced them (string, float64, int, json.Number, nil).
type RawRow struct {
	Symbols        any `json:"symbols"`
	VMSize         any `json:"vmsize"`
	Instantiations any `json:"instantiations"`
}

// SymbolRecord is a validated row, later a canonical (collapsed) record.
type SymbolRecord struct {
	QualifiedName      string
	SizeBytes          int64
	InstantiationCount int64
}

// Category is the probable toolchain origin of a symbol.
type Category int

const (
	Other Category = iota
	CPP
	Rust
	Zig
	SysV
)

var categoryNames = map[Category]string{
	CPP:   "CPP",
	Rust:  "Rust",
	Zig:   "Zig",
	SysV:  "SysV",
	Other: "Other",
}

// AllCategories lists every category in display order.
var AllCategories = []Category{CPP, Rust, Zig, SysV, Other}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Other"
}

// ParseCategory maps a case-insensitive category name back to its value.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for c, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return c, true
		}
	}
	// "c++" is how most people spell it
	if strings.EqualFold(s, "c++") {
		return CPP, true
	}
	return Other, false
}

// Node is one element of the frozen hierarchy. All fields are read through accessors.
type Node struct {
	segment    string
	ownSize    int64
	aggregated int64
	children   map[string]*Node
	sorted     []*Node // children by aggregated size desc, then name; filled at freeze

	originalName  string
	fullPath      string
	instantiation int64
}

func newNode(segment string) *Node {
	return &Node{segment: segment, children: make(map[string]*Node)}
}

func (n *Node) SegmentName() string { return n.segment }
func (n *Node) OwnSize() int64 { return n.ownSize }
func (n *Node) AggregatedSize() int64 { return n.aggregated }
func (n *Node) OriginalQualifiedName() string { return n.originalName }
func (n *Node) FullPathKey() string { return n.fullPath }
func (n *Node) InstantiationCount() int64 { return n.instantiation }
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Child returns the child keyed by segment, if any.
func (n *Node) Child(segment string) (*Node, bool) {
	c, ok := n.children[segment]
	return c, ok
}

// Children returns the children ordered by aggregated size (descending), then by name.
// The returned slice must not be modified.
func (n *Node) Children() []*Node {
	return n.sorted
}

// DisplayName is the original qualified name when known, otherwise the segment name.
func (n *Node) DisplayName() string {
	if n.originalName != "" {
		return n.originalName
	}
	return n.segment
}

// searchKey is what text search runs against: original name, then full path, then segment.
func (n *Node) searchKey() string {
	switch {
	case n.originalName != "":
		return n.originalName
	case n.fullPath != "":
		return n.fullPath
	default:
		return n.segment
	}
}

// Category classifies the node by its display name.
func (n *Node) Category() Category {
	return Classify(n.DisplayName())
}

// SymbolGroup collects leaves that share an instantiation-stripped name.
type SymbolGroup struct {
	BaseName    string
	TotalSize   int64
	MemberCount int64
	MemberNames []string
}

// freeze orders every child list once; nothing writes to the tree afterwards.
func (n *Node) freeze() {
	n.sorted = make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		n.sorted = append(n.sorted, c)
	}
	sort.Slice(n.sorted, func(i, j int) bool {
		a, b := n.sorted[i], n.sorted[j]
		if a.aggregated != b.aggregated {
			return a.aggregated > b.aggregated
		}
		return a.segment < b.segment
	})
	for _, c := range n.sorted {
		c.freeze()
	}
}
