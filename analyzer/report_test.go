package analyzer_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

func sampleTree(t *testing.T) *symtree.Tree {
	t.Helper()
	rows, err := analyzer.LoadRowsCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return symtree.BuildHierarchy(rows)
}

func TestAnalyzeHierarchy_JSON(t *testing.T) {
	out, err := analyzer.AnalyzeHierarchy(sampleTree(t), symtree.FilterState{}, 3, "json")
	require.NoError(t, err)

	var result analyzer.BloatAnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, int64(565), result.TotalSize)
	assert.Equal(t, int64(565), result.MatchedSize)
	assert.Equal(t, 3, result.TopN)
	require.Len(t, result.Symbols, 3)
	assert.Equal(t, "[section .rodata]", result.Symbols[0].Name)
	assert.Equal(t, "SysV", result.Symbols[0].Category)
	assert.Equal(t, "std::vector<int>::push_back", result.Symbols[1].Name)
	assert.Equal(t, "CPP", result.Symbols[1].Category)
	assert.InDelta(t, 300.0/565.0*100, result.Symbols[0].Percentage, 0.001)

	byCategory := make(map[string]analyzer.CategoryStat)
	for _, c := range result.Categories {
		byCategory[c.Category] = c
	}
	assert.Equal(t, int64(300), byCategory["SysV"].Size)
	assert.Equal(t, int64(200), byCategory["CPP"].Size)
	assert.Equal(t, int64(65), byCategory["Zig"].Size)
	assert.Equal(t, 2, byCategory["Zig"].Symbols)
	assert.Equal(t, "SysV", result.Categories[0].Category)

	assert.Equal(t, 7, result.Build.Rows)
	assert.Equal(t, 6, result.Build.Normalized)
}

func TestAnalyzeHierarchy_FilterAndText(t *testing.T) {
	tree := sampleTree(t)
	out, err := analyzer.AnalyzeHierarchy(tree, symtree.FilterState{Categories: []symtree.Category{symtree.Zig}}, 5, "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "```text\n"))
	assert.Contains(t, out, "app.main")
	assert.Contains(t, out, "app.init")
	assert.NotContains(t, out, "push_back")
	assert.Contains(t, out, "Matched Size: 65 B")
}

func TestAnalyzeHierarchy_SuggestionsWhenSearchMissesEverything(t *testing.T) {
	out, err := analyzer.AnalyzeHierarchy(sampleTree(t), symtree.FilterState{Search: "pushback"}, 5, "json")
	require.NoError(t, err)

	var result analyzer.BloatAnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Symbols)
	assert.Contains(t, result.Suggestions, "push_back")
}

func TestAnalyzeHierarchy_Errors(t *testing.T) {
	tree := sampleTree(t)
	_, err := analyzer.AnalyzeHierarchy(tree, symtree.FilterState{}, 5, "yaml")
	assert.Error(t, err)

	_, err = analyzer.AnalyzeHierarchy(tree, symtree.FilterState{PathPattern: "app/["}, 5, "text")
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", analyzer.FormatBytes(512))
	assert.Equal(t, "1.50 KB", analyzer.FormatBytes(1536))
	assert.Equal(t, "2.00 MB", analyzer.FormatBytes(2*1024*1024))
	assert.Equal(t, "-1.00 KB", analyzer.FormatBytes(-1024))
	assert.Equal(t, "-", analyzer.FormatCount(1))
	assert.Equal(t, "x4", analyzer.FormatCount(4))
}
