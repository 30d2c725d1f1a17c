package analyzer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// ErrMissingSymbolsColumn is returned when a CSV export has no "symbols" header.
var ErrMissingSymbolsColumn = errors.New("csv header has no 'symbols' column")

// LoadRowsCSV decodes a size-profiler CSV export into raw rows.
//
// The header decides the columns: "symbols" is required; the size comes from "vmsize", or from
// "filesize" when "vmsize" is absent; "instantiations" is optional. Numeric cells are decoded to
// float64 and everything else is left as a string for the normalizer to judge.
func LoadRowsCSV(r io.Reader) ([]symtree.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	symCol, ok := cols["symbols"]
	if !ok {
		return nil, ErrMissingSymbolsColumn
	}
	sizeCol, ok := cols["vmsize"]
	if !ok {
		sizeCol, ok = cols["filesize"]
	}
	if !ok {
		sizeCol = -1
	}
	instCol, ok := cols["instantiations"]
	if !ok {
		instCol = -1
	}

	var rows []symtree.RawRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		rows = append(rows, symtree.RawRow{
			Symbols:        cell(rec, symCol, false),
			VMSize:         cell(rec, sizeCol, true),
			Instantiations: cell(rec, instCol, true),
		})
	}
	return rows, nil
}

// cell returns the decoded value of column i, or nil when the column is absent.
func cell(rec []string, i int, numeric bool) any {
	if i < 0 || i >= len(rec) {
		return nil
	}
	v := rec[i]
	if !numeric {
		return v
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return f
	}
	return v
}

// LoadRowsJSON decodes a JSON array of {symbols, vmsize, instantiations} objects.
// Numbers stay json.Number so the normalizer sees exactly what was written.
func LoadRowsJSON(r io.Reader) ([]symtree.RawRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, fmt.Errorf("failed to decode json rows: %w", err)
	}
	rows := make([]symtree.RawRow, 0, len(objs))
	for _, o := range objs {
		rows = append(rows, symtree.RawRow{
			Symbols:        o["symbols"],
			VMSize:         o["vmsize"],
			Instantiations: o["instantiations"],
		})
	}
	return rows, nil
}

// LoadRowsFile picks the decoder by extension (".json" or CSV for anything else).
func LoadRowsFile(path string) ([]symtree.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol export '%s': %w", path, err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadRowsJSON(file)
	}
	return LoadRowsCSV(file)
}

// LoadTreeFile decodes a file and builds its hierarchy.
func LoadTreeFile(path string, opts symtree.Options) (*symtree.Tree, error) {
	rows, err := LoadRowsFile(path)
	if err != nil {
		return nil, err
	}
	tree, stats := symtree.BuildHierarchyWithOptions(rows, opts)
	log.Printf("Built hierarchy from %s: %d rows, %d symbols, %d skipped, total %s",
		path, stats.Rows, stats.Inserted, stats.Skipped, FormatBytes(tree.TotalSize()))
	return tree, nil
}

// LoadTrees builds one tree per path concurrently. Results keep the order of paths.
func LoadTrees(ctx context.Context, paths []string, opts symtree.Options) ([]*symtree.Tree, error) {
	trees := make([]*symtree.Tree, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tree, err := LoadTreeFile(path, opts)
			if err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}
