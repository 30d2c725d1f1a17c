package symtree

// mergeVariants groups leaves by their instantiation-stripped segment name and annotates
// every node whose own stripped name is a group key with the group's member count.
// Structure is left untouched: each instantiation stays a distinct node.
func mergeVariants(root *Node) []SymbolGroup {
	var groups []SymbolGroup
	index := make(map[string]int)

	var collect func(n *Node)
	collect = func(n *Node) {
		if n.IsLeaf() {
			base := CanonicalName(n.segment)
			if base == "" {
				return
			}
			i, ok := index[base]
			if !ok {
				i = len(groups)
				index[base] = i
				groups = append(groups, SymbolGroup{BaseName: base})
			}
			g := &groups[i]
			g.TotalSize += n.aggregated
			g.MemberCount++
			g.MemberNames = append(g.MemberNames, n.DisplayName())
			return
		}
		for _, c := range n.sorted {
			collect(c)
		}
	}
	collect(root)

	var annotate func(n *Node)
	annotate = func(n *Node) {
		if i, ok := index[CanonicalName(n.segment)]; ok {
			n.instantiation = groups[i].MemberCount
		}
		for _, c := range n.sorted {
			annotate(c)
		}
	}
	annotate(root)

	return groups
}
