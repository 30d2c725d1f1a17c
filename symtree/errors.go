package symtree

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSegments means a record's name produced no path segments.
	ErrNoSegments = errors.New("name yields no path segments")
	// ErrPathTooDeep means a record's path exceeds Options.MaxDepth.
	ErrPathTooDeep = errors.New("path exceeds maximum depth")
)

// RecordError describes why a single record was left out of the tree.
type RecordError struct {
	Record SymbolRecord
	Op     string // "segment" or "insert"
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Record.QualifiedName, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
