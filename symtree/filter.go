package symtree

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterState is the user-facing visibility settings. The zero value matches every node.
type FilterState struct {
	MinSize    int64
	Categories []Category
	Search     string
	// PathPattern is an optional doublestar glob over FullPathKey, e.g. "std/**".
	PathPattern string
}

// Filter is a prepared FilterState. It holds no reference to any tree.
type Filter struct {
	minSize    int64
	categories map[Category]bool
	search     string
	pattern    string
}

// NewFilter prepares a filter, rejecting malformed path patterns.
func NewFilter(state FilterState) (Filter, error) {
	if state.PathPattern != "" && !doublestar.ValidatePattern(state.PathPattern) {
		return Filter{}, fmt.Errorf("invalid path pattern %q: %w", state.PathPattern, doublestar.ErrBadPattern)
	}
	f := Filter{
		minSize: state.MinSize,
		search:  strings.ToLower(state.Search),
		pattern: state.PathPattern,
	}
	if len(state.Categories) > 0 {
		f.categories = make(map[Category]bool, len(state.Categories))
		for _, c := range state.Categories {
			f.categories[c] = true
		}
	}
	return f, nil
}

// Matches reports whether the node passes the size, category, search and path conditions.
func (f Filter) Matches(n *Node) bool {
	if n == nil {
		return false
	}
	if n.aggregated < f.minSize {
		return false
	}
	if f.categories != nil && !f.categories[n.Category()] {
		return false
	}
	if f.search != "" && !strings.Contains(strings.ToLower(n.searchKey()), f.search) {
		return false
	}
	if f.pattern != "" {
		ok, err := doublestar.Match(f.pattern, n.fullPath)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Matches evaluates a FilterState against a node without preparing it first.
// A malformed path pattern matches nothing.
func Matches(n *Node, state FilterState) bool {
	f, err := NewFilter(state)
	if err != nil {
		return false
	}
	return f.Matches(n)
}
