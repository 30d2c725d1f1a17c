package analyzer

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// variantExamples caps how many member names a variant group lists.
const variantExamples = 3

// AnalyzeHierarchy ranks the symbols of a built tree that pass the filter and returns a
// formatted report. Supported formats: text, markdown, json, flamegraph-json.
func AnalyzeHierarchy(tree *symtree.Tree, state symtree.FilterState, topN int, format string) (string, error) {
	log.Printf("Analyzing symbol hierarchy (Top %d, Format: %s)", topN, format)
	if topN <= 0 {
		topN = 5
	}

	filter, err := symtree.NewFilter(state)
	if err != nil {
		return "", err
	}

	if format == "flamegraph-json" {
		flameGraphRoot := BuildFlameGraphTree(tree, filter)
		jsonBytes, err := json.Marshal(flameGraphRoot)
		if err != nil {
			log.Printf("Error marshaling flame graph tree to JSON: %v", err)
			errorResult := ErrorResult{Error: fmt.Sprintf("Failed to marshal flame graph tree to JSON: %v", err)}
			errJsonBytes, _ := json.Marshal(errorResult)
			return string(errJsonBytes), nil
		}
		return string(jsonBytes), nil
	}

	// --- 1. Collect the symbols that pass the filter ---
	// A symbol is a node that received bytes of its own, or a leaf.
	total := tree.TotalSize()
	var symbols []*symtree.Node
	catSize := make(map[symtree.Category]int64)
	catCount := make(map[symtree.Category]int)
	matchedSize := int64(0)

	tree.Walk(func(n *symtree.Node, depth int) bool {
		if depth == 0 || (n.OwnSize() == 0 && !n.IsLeaf()) {
			return true
		}
		if !filter.Matches(n) {
			return true
		}
		symbols = append(symbols, n)
		c := n.Category()
		catSize[c] += n.OwnSize()
		catCount[c]++
		matchedSize += n.OwnSize()
		return true
	})

	// --- 2. Rank by aggregated size ---
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].AggregatedSize() != symbols[j].AggregatedSize() {
			return symbols[i].AggregatedSize() > symbols[j].AggregatedSize()
		}
		return symbols[i].FullPathKey() < symbols[j].FullPathKey()
	})
	limit := topN
	if limit > len(symbols) {
		limit = len(symbols)
	}

	result := BloatAnalysisResult{
		TotalSize:          total,
		TotalSizeFormatted: FormatBytes(total),
		MatchedSize:        matchedSize,
		Build:              summarize(tree.Stats()),
		TopN:               limit,
		Symbols:            make([]SymbolStat, 0, limit),
	}
	for _, n := range symbols[:limit] {
		result.Symbols = append(result.Symbols, SymbolStat{
			Name:           n.DisplayName(),
			Path:           n.FullPathKey(),
			Category:       n.Category().String(),
			Size:           n.AggregatedSize(),
			SizeFormatted:  FormatBytes(n.AggregatedSize()),
			OwnSize:        n.OwnSize(),
			Instantiations: n.InstantiationCount(),
			Percentage:     percentOf(n.AggregatedSize(), total),
		})
	}
	for _, c := range symtree.AllCategories {
		if catCount[c] == 0 {
			continue
		}
		result.Categories = append(result.Categories, CategoryStat{
			Category:      c.String(),
			Size:          catSize[c],
			SizeFormatted: FormatBytes(catSize[c]),
			Symbols:       catCount[c],
			Percentage:    percentOf(catSize[c], total),
		})
	}
	sort.SliceStable(result.Categories, func(i, j int) bool {
		return result.Categories[i].Size > result.Categories[j].Size
	})
	for _, g := range tree.LargestGroups(topN) {
		examples := g.MemberNames
		if len(examples) > variantExamples {
			examples = examples[:variantExamples]
		}
		result.Variants = append(result.Variants, VariantGroupStat{
			BaseName:           g.BaseName,
			TotalSize:          g.TotalSize,
			TotalSizeFormatted: FormatBytes(g.TotalSize),
			Members:            g.MemberCount,
			Examples:           examples,
		})
	}
	if len(symbols) == 0 && state.Search != "" {
		result.Suggestions = SuggestNames(tree, state.Search, 3)
	}

	// --- 3. Format the output ---
	switch format {
	case "text", "markdown":
		return formatBloatText(result, format == "markdown"), nil
	case "json":
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Printf("Error marshaling bloat analysis to JSON: %v", err)
			errorResult := ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err), TopN: topN}
			errJsonBytes, _ := json.Marshal(errorResult)
			return string(errJsonBytes), nil
		}
		return string(jsonBytes), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func summarize(s symtree.BuildStats) BuildSummary {
	return BuildSummary{
		Rows:       s.Rows,
		Normalized: s.Normalized,
		Canonical:  s.Canonical,
		Inserted:   s.Inserted,
		Empty:      s.Empty,
		Skipped:    s.Skipped,
	}
}

func formatBloatText(r BloatAnalysisResult, markdown bool) string {
	var b strings.Builder
	if markdown {
		b.WriteString("```text\n")
	}
	b.WriteString(fmt.Sprintf("Binary Size Analysis (Top %d Symbols by Size)\n", r.TopN))
	b.WriteString(fmt.Sprintf("Total Size: %s (%d symbols from %d rows", r.TotalSizeFormatted, r.Build.Inserted, r.Build.Rows))
	if r.Build.Skipped > 0 {
		b.WriteString(fmt.Sprintf(", %d skipped", r.Build.Skipped))
	}
	b.WriteString(")\n")
	if r.MatchedSize != r.TotalSize {
		b.WriteString(fmt.Sprintf("Matched Size: %s (%.2f%%)\n", FormatBytes(r.MatchedSize), percentOf(r.MatchedSize, r.TotalSize)))
	}
	b.WriteString("--------------------------------------------------\n")
	b.WriteString(fmt.Sprintf("%-12s %-8s %-6s %-6s %s\n", "Size", "%", "Kind", "Inst", "Symbol"))
	b.WriteString("--------------------------------------------------\n")
	for _, s := range r.Symbols {
		b.WriteString(fmt.Sprintf("%-12s %-8.2f %-6s %-6s %s\n", s.SizeFormatted, s.Percentage, s.Category, FormatCount(s.Instantiations), s.Name))
	}
	if len(r.Symbols) == 0 {
		b.WriteString("(no symbols match the current filter)\n")
	}
	if len(r.Suggestions) > 0 {
		b.WriteString(fmt.Sprintf("Did you mean: %s\n", strings.Join(r.Suggestions, ", ")))
	}

	if len(r.Categories) > 0 {
		b.WriteString("\nBy Origin:\n")
		for _, c := range r.Categories {
			b.WriteString(fmt.Sprintf("  %-6s %-12s %-8.2f %d symbols\n", c.Category, c.SizeFormatted, c.Percentage, c.Symbols))
		}
	}
	if len(r.Variants) > 0 {
		b.WriteString("\nLargest Instantiation Groups:\n")
		for _, v := range r.Variants {
			b.WriteString(fmt.Sprintf("  %-12s x%-4d %s (e.g. %s)\n", v.TotalSizeFormatted, v.Members, v.BaseName, strings.Join(v.Examples, ", ")))
		}
	}
	if markdown {
		b.WriteString("```\n")
	}
	return b.String()
}
