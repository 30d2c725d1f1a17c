package analyzer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

const sampleCSV = `symbols,vmsize,filesize
std::vector<int>::push_back,120,130
"std::vector<int>::reserve",80,80
app.main,40,48
app.init__anon_1,10,10
app.init__anon_2,15,16
[section .rodata],300,300
broken,abc,1
`

func TestLoadRowsCSV(t *testing.T) {
	rows, err := analyzer.LoadRowsCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, "std::vector<int>::push_back", rows[0].Symbols)
	assert.Equal(t, 120.0, rows[0].VMSize)
	assert.Nil(t, rows[0].Instantiations)
	// non-numeric cells stay strings so the normalizer can reject them
	assert.Equal(t, "abc", rows[6].VMSize)

	tree := symtree.BuildHierarchy(rows)
	assert.Equal(t, int64(565), tree.TotalSize())
	assert.Equal(t, 6, tree.Stats().Normalized) // "broken" is dropped
}

func TestLoadRowsCSV_FilesizeFallbackAndInstantiations(t *testing.T) {
	rows, err := analyzer.LoadRowsCSV(strings.NewReader("Symbols,FileSize,Instantiations\nfoo,12,3\nbar\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.0, rows[0].VMSize)
	assert.Equal(t, 3.0, rows[0].Instantiations)
	assert.Nil(t, rows[1].VMSize)
}

func TestLoadRowsCSV_Errors(t *testing.T) {
	_, err := analyzer.LoadRowsCSV(strings.NewReader("name,vmsize\nfoo,1\n"))
	assert.ErrorIs(t, err, analyzer.ErrMissingSymbolsColumn)

	rows, err := analyzer.LoadRowsCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadRowsJSON(t *testing.T) {
	rows, err := analyzer.LoadRowsJSON(strings.NewReader(`[
		{"symbols": "foo__anon_1", "vmsize": 10, "instantiations": 0},
		{"symbols": "foo__anon_2", "vmsize": 20, "instantiations": 0},
		{"symbols": 7, "vmsize": 20}
	]`))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	tree := symtree.BuildHierarchy(rows)
	foo, ok := tree.Find("foo")
	require.True(t, ok)
	assert.Equal(t, int64(30), foo.OwnSize())
	assert.Equal(t, int64(30), tree.TotalSize())
}

func TestLoadTrees(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "old.csv")
	second := filepath.Join(dir, "new.json")
	require.NoError(t, os.WriteFile(first, []byte(sampleCSV), 0644))
	require.NoError(t, os.WriteFile(second, []byte(`[{"symbols":"main","vmsize":8}]`), 0644))

	trees, err := analyzer.LoadTrees(context.Background(), []string{first, second}, symtree.Options{})
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, int64(565), trees[0].TotalSize())
	assert.Equal(t, int64(8), trees[1].TotalSize())

	_, err = analyzer.LoadTrees(context.Background(), []string{first, filepath.Join(dir, "missing.csv")}, symtree.Options{})
	assert.Error(t, err)
}
