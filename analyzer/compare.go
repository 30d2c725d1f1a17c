package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// symbolSizes maps each symbol's full path to its own size and instantiation count.
func symbolSizes(tree *symtree.Tree) (sizes, counts map[string]int64) {
	sizes = make(map[string]int64)
	counts = make(map[string]int64)
	tree.Walk(func(n *symtree.Node, depth int) bool {
		if depth == 0 || (n.OwnSize() == 0 && !n.IsLeaf()) {
			return true
		}
		sizes[n.FullPathKey()] += n.OwnSize()
		counts[n.FullPathKey()] += n.InstantiationCount()
		return true
	})
	return sizes, counts
}

// growthPercent is the relative change; anything new counts as 100%.
func growthPercent(oldVal, growth int64) float64 {
	if oldVal > 0 {
		return float64(growth) / float64(oldVal) * 100
	}
	if growth > 0 {
		return 100.0
	}
	return 0
}

// CompareTrees reports the symbols that grew between two builds of the same binary.
// threshold is the minimum relative growth (0.1 = 10%); limit caps the listed symbols.
func CompareTrees(oldTree, newTree *symtree.Tree, threshold float64, limit int, format string) (string, error) {
	if threshold <= 0 {
		threshold = 0.1 // Default threshold: 10% growth
	}
	if limit <= 0 {
		limit = 10 // Default: show top 10 growing symbols
	}

	oldSizes, oldCounts := symbolSizes(oldTree)
	newSizes, newCounts := symbolSizes(newTree)

	growthStats := make([]GrowthStat, 0)
	for path, newVal := range newSizes {
		oldVal := oldSizes[path]
		growth := newVal - oldVal
		pct := growthPercent(oldVal, growth)
		// Only keep symbols with growth above the threshold
		if growth <= 0 || pct < threshold*100 {
			continue
		}
		oldCount, newCount := oldCounts[path], newCounts[path]
		growthStats = append(growthStats, GrowthStat{
			Path:           path,
			OldSize:        oldVal,
			NewSize:        newVal,
			Growth:         growth,
			GrowthPercent:  pct,
			OldCount:       oldCount,
			NewCount:       newCount,
			CountGrowth:    newCount - oldCount,
			CountGrowthPct: growthPercent(oldCount, newCount-oldCount),
		})
	}
	sort.Slice(growthStats, func(i, j int) bool {
		if growthStats[i].Growth != growthStats[j].Growth {
			return growthStats[i].Growth > growthStats[j].Growth
		}
		return growthStats[i].Path < growthStats[j].Path
	})
	if len(growthStats) > limit {
		growthStats = growthStats[:limit]
	}

	if format == "json" {
		result := ComparisonResult{
			OldTotal:  oldTree.TotalSize(),
			NewTotal:  newTree.TotalSize(),
			Threshold: threshold,
			Growth:    growthStats,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal comparison to JSON: %w", err)
		}
		return string(jsonBytes), nil
	}

	var b strings.Builder
	b.WriteString("Binary Size Growth Report\n")
	b.WriteString("=========================\n\n")
	b.WriteString(fmt.Sprintf("Total: %s -> %s (%+d bytes)\n\n",
		FormatBytes(oldTree.TotalSize()), FormatBytes(newTree.TotalSize()), newTree.TotalSize()-oldTree.TotalSize()))

	if len(growthStats) == 0 {
		b.WriteString("No significant symbol growth detected.\n")
		return b.String(), nil
	}

	b.WriteString(fmt.Sprintf("Found %d symbols with significant growth (threshold: %.1f%%)\n\n",
		len(growthStats), threshold*100))
	b.WriteString("--------------------------------------------------\n")
	b.WriteString(fmt.Sprintf("%-12s %-12s %-12s %-10s %s\n", "Old Size", "New Size", "Growth", "Growth %", "Symbol"))
	b.WriteString("--------------------------------------------------\n")
	for _, stat := range growthStats {
		b.WriteString(fmt.Sprintf("%-12s %-12s %-12s %-10.2f %s",
			FormatBytes(stat.OldSize),
			FormatBytes(stat.NewSize),
			FormatBytes(stat.Growth),
			stat.GrowthPercent,
			stat.Path))
		if stat.CountGrowth > 0 {
			b.WriteString(fmt.Sprintf(" (instantiations: %d → %d)", stat.OldCount, stat.NewCount))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
