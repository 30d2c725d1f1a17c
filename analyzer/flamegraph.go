package analyzer

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// BuildFlameGraphTree converts a symbol hierarchy into FlameGraphNode JSON.
// A node is kept when it passes the filter or has a descendant that does; values are the
// nodes' aggregated sizes, so pruned siblings simply leave a gap.
func BuildFlameGraphTree(tree *symtree.Tree, filter symtree.Filter) *FlameGraphNode {
	root := &FlameGraphNode{
		// "root" is conventional for d3-flame-graph.
		Name:  "root",
		Value: tree.TotalSize(),
	}
	for _, c := range tree.Root().Children() {
		if child := flameGraphNode(c, filter); child != nil {
			root.Children = append(root.Children, child)
		}
	}
	return root
}

func flameGraphNode(n *symtree.Node, filter symtree.Filter) *FlameGraphNode {
	var children []*FlameGraphNode
	for _, c := range n.Children() {
		if child := flameGraphNode(c, filter); child != nil {
			children = append(children, child)
		}
	}
	if len(children) == 0 && !filter.Matches(n) {
		return nil
	}
	return &FlameGraphNode{
		Name:           n.SegmentName(),
		Value:          n.AggregatedSize(),
		Category:       n.Category().String(),
		Instantiations: n.InstantiationCount(),
		Children:       children,
	}
}

// ToProfile converts the hierarchy into a pprof profile so that `go tool pprof` can render it.
//
// Every node that owns bytes becomes one sample whose stack is its path (leaf first). Sample values
// are {own size in bytes, instantiation count}; the node's category is attached as a label.
func ToProfile(tree *symtree.Tree) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "vmsize", Unit: "bytes"},
			{Type: "instantiations", Unit: "count"},
		},
		PeriodType:        &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:            1,
		DefaultSampleType: "vmsize",
	}

	var stack []*profile.Location
	var visit func(n *symtree.Node)
	visit = func(n *symtree.Node) {
		id := uint64(len(p.Location) + 1)
		fn := &profile.Function{
			ID:         id,
			Name:       n.SegmentName(),
			SystemName: n.FullPathKey(),
			Filename:   n.DisplayName(),
		}
		loc := &profile.Location{
			ID:   id,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		stack = append(stack, loc)

		if n.OwnSize() > 0 {
			locs := make([]*profile.Location, len(stack))
			for i := range stack {
				locs[i] = stack[len(stack)-1-i]
			}
			p.Sample = append(p.Sample, &profile.Sample{
				Location: locs,
				Value:    []int64{n.OwnSize(), n.InstantiationCount()},
				Label:    map[string][]string{"category": {n.Category().String()}},
			})
		}
		for _, c := range n.Children() {
			visit(c)
		}
		stack = stack[:len(stack)-1]
	}
	for _, c := range tree.Root().Children() {
		visit(c)
	}
	return p
}

// WriteProfile writes the gzipped pprof encoding of the hierarchy to w.
func WriteProfile(tree *symtree.Tree, w io.Writer) error {
	p := ToProfile(tree)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile generated from hierarchy: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
