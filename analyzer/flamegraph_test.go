package analyzer_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

func TestBuildFlameGraphTree(t *testing.T) {
	tree := sampleTree(t)

	t.Run("Unfiltered", func(t *testing.T) {
		filter, err := symtree.NewFilter(symtree.FilterState{})
		require.NoError(t, err)
		flameGraph := analyzer.BuildFlameGraphTree(tree, filter)

		jsonBytes, err := json.Marshal(flameGraph)
		require.NoError(t, err)
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(jsonBytes, &result))

		assert.Equal(t, "root", result["name"])
		assert.Equal(t, 565.0, result["value"])
		children, ok := result["children"].([]interface{})
		require.True(t, ok)
		require.Len(t, children, 3)

		first := children[0].(map[string]interface{})
		assert.Equal(t, "[section .rodata]", first["name"])
		assert.Equal(t, "SysV", first["category"])

		second := children[1].(map[string]interface{})
		assert.Equal(t, "std", second["name"])
		assert.Equal(t, 200.0, second["value"])
	})

	t.Run("FilteredKeepsAncestors", func(t *testing.T) {
		filter, err := symtree.NewFilter(symtree.FilterState{Search: "reserve"})
		require.NoError(t, err)
		flameGraph := analyzer.BuildFlameGraphTree(tree, filter)

		require.Len(t, flameGraph.Children, 1)
		std := flameGraph.Children[0]
		assert.Equal(t, "std", std.Name)
		require.Len(t, std.Children, 1)
		vec := std.Children[0]
		require.Len(t, vec.Children, 1)
		assert.Equal(t, "reserve", vec.Children[0].Name)
		assert.Equal(t, int64(80), vec.Children[0].Value)
	})
}

func TestToProfile(t *testing.T) {
	tree := sampleTree(t)
	p := analyzer.ToProfile(tree)
	require.NoError(t, p.CheckValid())
	require.Len(t, p.SampleType, 2)
	assert.Equal(t, "vmsize", p.SampleType[0].Type)
	assert.Equal(t, "bytes", p.SampleType[0].Unit)

	var buf bytes.Buffer
	require.NoError(t, analyzer.WriteProfile(tree, &buf))

	parsed, err := profile.Parse(&buf)
	require.NoError(t, err)

	total := int64(0)
	leafNames := make(map[string]bool)
	for _, s := range parsed.Sample {
		total += s.Value[0]
		require.NotEmpty(t, s.Location)
		leafNames[s.Location[0].Line[0].Function.Name] = true
		assert.NotEmpty(t, s.Label["category"])
	}
	assert.Equal(t, tree.TotalSize(), total)
	assert.True(t, leafNames["push_back"])
	assert.True(t, leafNames["[section .rodata]"])

	// the stack of push_back runs leaf first up to "std"
	for _, s := range parsed.Sample {
		if s.Location[0].Line[0].Function.Name != "push_back" {
			continue
		}
		require.Len(t, s.Location, 3)
		assert.Equal(t, "vector<int>", s.Location[1].Line[0].Function.Name)
		assert.Equal(t, "std", s.Location[2].Line[0].Function.Name)
		assert.Equal(t, "std/vector<int>/push_back", s.Location[0].Line[0].Function.SystemName)
	}
}
