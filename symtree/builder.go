package symtree

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// PathSeparator joins segments into a node's full path key.
const PathSeparator = "/"

// ErrBuilt is returned by Insert once Build has frozen the tree.
var ErrBuilt = errors.New("builder already produced its tree")

// beforeInsert, when set, runs for each record just before it is placed in the tree.
var beforeInsert func(SymbolRecord)

// Options tunes a build.
type Options struct {
	// MaxDepth rejects records whose path has more segments than this. Zero means unlimited.
	MaxDepth int
}

// BuildStats summarises what happened to the input rows of one build.
type BuildStats struct {
	Rows       int // raw rows received
	Normalized int // rows that passed validation
	Canonical  int // records after instantiation collapsing
	Inserted   int // records that reached the tree
	Empty      int // records whose name produced no segments
	Skipped    int // records that failed to segment or insert
	Errors     []*RecordError
}

// Builder accumulates canonical records into a hierarchy. It is single-use:
// after Build the produced Tree is immutable and the Builder rejects further inserts.
type Builder struct {
	root  *Node
	opts  Options
	stats BuildStats
	built bool
}

// NewBuilder returns an empty builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{root: newNode(""), opts: opts}
}

// Insert adds one canonical record. A failing record leaves the rest of the build intact.
func (b *Builder) Insert(rec SymbolRecord) (err error) {
	if b.built {
		return ErrBuilt
	}
	op := "segment"
	defer func() {
		if r := recover(); r != nil {
			err = &RecordError{Record: rec, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
		if err == nil {
			b.stats.Inserted++
			return
		}
		var recErr *RecordError
		if !errors.As(err, &recErr) {
			return
		}
		if errors.Is(recErr, ErrNoSegments) {
			b.stats.Empty++
			return
		}
		b.stats.Skipped++
		b.stats.Errors = append(b.stats.Errors, recErr)
	}()

	segments := Segment(rec.QualifiedName)
	if len(segments) == 0 {
		return &RecordError{Record: rec, Op: op, Err: ErrNoSegments}
	}
	op = "insert"
	if b.opts.MaxDepth > 0 && len(segments) > b.opts.MaxDepth {
		return &RecordError{Record: rec, Op: op, Err: fmt.Errorf("%w: %d > %d", ErrPathTooDeep, len(segments), b.opts.MaxDepth)}
	}

	if beforeInsert != nil {
		beforeInsert(rec)
	}

	node := b.root
	for i, seg := range segments {
		child, ok := node.children[seg]
		if !ok {
			// first writer wins: identity is only set when the node is created
			child = newNode(seg)
			child.fullPath = strings.Join(segments[:i+1], PathSeparator)
			child.originalName = rec.QualifiedName
			node.children[seg] = child
		}
		node = child
	}
	node.ownSize += rec.SizeBytes
	node.instantiation += rec.InstantiationCount
	return nil
}

// Build aggregates sizes, annotates instantiation variants and freezes the hierarchy.
func (b *Builder) Build() *Tree {
	if b.built {
		panic("symtree: Build called twice")
	}
	b.built = true

	aggregate(b.root)
	b.root.freeze()
	groups := mergeVariants(b.root)

	index := make(map[string]int, len(groups))
	for i, g := range groups {
		index[g.BaseName] = i
	}
	return &Tree{root: b.root, groups: groups, groupIndex: index, stats: b.stats}
}

// aggregate computes aggregated = own + Σ child.aggregated in one post-order pass.
func aggregate(n *Node) int64 {
	total := n.ownSize
	for _, c := range n.children {
		total += aggregate(c)
	}
	n.aggregated = total
	return total
}

// BuildHierarchy runs the full pipeline with default options.
func BuildHierarchy(rows []RawRow) *Tree {
	t, _ := BuildHierarchyWithOptions(rows, Options{})
	return t
}

// BuildHierarchyWithOptions normalizes, collapses and inserts rows, then freezes the tree.
func BuildHierarchyWithOptions(rows []RawRow, opts Options) (*Tree, BuildStats) {
	normalized := NormalizeRows(rows)
	canonical := CollapseInstantiations(normalized)

	b := NewBuilder(opts)
	for _, rec := range canonical {
		if err := b.Insert(rec); err != nil && !errors.Is(err, ErrNoSegments) {
			log.Printf("Skipping symbol record: %v", err)
		}
	}
	b.stats.Rows = len(rows)
	b.stats.Normalized = len(normalized)
	b.stats.Canonical = len(canonical)

	t := b.Build()
	return t, t.stats
}
