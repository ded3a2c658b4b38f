// Package subtree implements the subtree extractor: a depth-first
// transitive closure over FileDeps starting from a root source file,
// producing the BuildTree actually needed to build a given target.
package subtree

import (
	"fmt"
	"sort"

	"github.com/metoffice/fab-go/internal/types"
)

// Result is the outcome of extracting a subtree: the closed set of
// analysed files reachable from root, plus every dependency that pointed
// at a file absent from the analysed set (a missing source file or a
// dependency that was never resolved to anything).
type Result struct {
	Tree    types.BuildTree
	Missing types.PathSet
}

// Extract walks FileDeps transitively from root: traversal never aborts
// on a missing dependency, it just records it and continues with
// whatever was reachable.
func Extract(root types.SourcePath, analysed map[types.SourcePath]*types.AnalysedFile) (Result, error) {
	if _, ok := analysed[root]; !ok {
		return Result{}, fmt.Errorf("fab: root file %s was not analysed", root)
	}

	tree := types.BuildTree{}
	missing := types.PathSet{}
	visited := map[types.SourcePath]bool{}

	visit(root, analysed, tree, missing, visited)

	return Result{Tree: tree, Missing: missing}, nil
}

func visit(path types.SourcePath, analysed map[types.SourcePath]*types.AnalysedFile, tree types.BuildTree, missing types.PathSet, visited map[types.SourcePath]bool) {
	if visited[path] {
		return
	}
	visited[path] = true

	af, ok := analysed[path]
	if !ok {
		missing.Add(path)
		return
	}
	tree[path] = af

	for _, dep := range af.FileDeps.Sorted() {
		visit(dep, analysed, tree, missing, visited)
	}
}

// Paths returns tree's keys in sorted order, the deterministic iteration
// order used by the compile scheduler and by "show-tree" diagnostics.
func Paths(tree types.BuildTree) []types.SourcePath {
	out := make([]types.SourcePath, 0, len(tree))
	for p := range tree {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
