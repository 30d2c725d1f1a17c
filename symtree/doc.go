// Package symtree turns flat size-profiler rows into a frozen, size-aggregated symbol
// hierarchy, and provides the classifier and filter that views run against it.
//
// Pipeline: NormalizeRows -> CollapseInstantiations -> Segment + Builder -> variant merge.
// BuildHierarchy runs all of it and returns an immutable *Tree.
package symtree
