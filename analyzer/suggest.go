package analyzer

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// minSuggestionScore is the Jaro-Winkler similarity a segment name needs to be suggested.
const minSuggestionScore = 0.75

// SuggestNames returns up to limit segment names that look like term, best first.
// It is meant for searches that matched nothing.
func SuggestNames(tree *symtree.Tree, term string, limit int) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || limit <= 0 {
		return nil
	}

	type candidate struct {
		name  string
		score float32
	}
	seen := make(map[string]bool)
	var candidates []candidate
	tree.Walk(func(n *symtree.Node, depth int) bool {
		name := n.SegmentName()
		if depth == 0 || seen[name] {
			return true
		}
		seen[name] = true
		score, err := edlib.StringsSimilarity(term, strings.ToLower(name), edlib.JaroWinkler)
		if err != nil || score < minSuggestionScore {
			return true
		}
		candidates = append(candidates, candidate{name: name, score: score})
		return true
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
