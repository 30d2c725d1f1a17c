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

func treeOf(rows ...symtree.RawRow) *symtree.Tree {
	return symtree.BuildHierarchy(rows)
}

func TestCompareTrees(t *testing.T) {
	oldTree := treeOf(
		symtree.RawRow{Symbols: "app.main", VMSize: 100.0},
		symtree.RawRow{Symbols: "app.helper", VMSize: 50.0},
		symtree.RawRow{Symbols: "ns::stable", VMSize: 10.0},
	)
	newTree := treeOf(
		symtree.RawRow{Symbols: "app.main", VMSize: 105.0}, // +5%
		symtree.RawRow{Symbols: "app.helper__anon_1", VMSize: 50.0},
		symtree.RawRow{Symbols: "app.helper__anon_2", VMSize: 40.0},
		symtree.RawRow{Symbols: "ns::stable", VMSize: 10.0},
		symtree.RawRow{Symbols: "ns::fresh", VMSize: 30.0},
	)

	t.Run("JSON", func(t *testing.T) {
		out, err := analyzer.CompareTrees(oldTree, newTree, 0.1, 10, "json")
		require.NoError(t, err)

		var result analyzer.ComparisonResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, int64(160), result.OldTotal)
		assert.Equal(t, int64(235), result.NewTotal)

		require.Len(t, result.Growth, 2)
		assert.Equal(t, "app/helper", result.Growth[0].Path)
		assert.Equal(t, int64(40), result.Growth[0].Growth)
		assert.InDelta(t, 80.0, result.Growth[0].GrowthPercent, 0.001)

		assert.Equal(t, "ns/fresh", result.Growth[1].Path)
		assert.Equal(t, 100.0, result.Growth[1].GrowthPercent)
	})

	t.Run("Text", func(t *testing.T) {
		out, err := analyzer.CompareTrees(oldTree, newTree, 0, 1, "text")
		require.NoError(t, err)
		assert.Contains(t, out, "Binary Size Growth Report")
		assert.Contains(t, out, "app/helper")
		assert.NotContains(t, out, "ns/fresh")
	})

	t.Run("NoGrowth", func(t *testing.T) {
		out, err := analyzer.CompareTrees(newTree, oldTree, 0.1, 10, "text")
		require.NoError(t, err)
		assert.True(t, strings.Contains(out, "No significant symbol growth detected."))
	})
}
