// Package schedule implements the compile scheduler: a pass-based loop
// over a module-dependency DAG. Each pass partitions the remaining files
// into those whose module dependencies are already satisfied ("ready")
// and those still waiting ("blocked"), then compiles the ready set in
// parallel with a fresh worker pool, accumulates the module names that
// pass just produced, and repeats until nothing is left or a pass makes
// no progress.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/types"
)

// Compiler compiles a single analysed file into an object file.
type Compiler interface {
	Compile(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error)
}

// CompilerFunc adapts a plain function to Compiler.
type CompilerFunc func(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error)

func (f CompilerFunc) Compile(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
	return f(ctx, af)
}

// Run compiles every file in tree, in dependency order, using compiler
// with up to workers concurrent compiles per pass. It returns the
// compiled units in the order their passes completed (not necessarily
// tree's sort order).
func Run(ctx context.Context, tree types.BuildTree, compiler Compiler, workers int) ([]types.CompileUnit, error) {
	remaining := make(map[types.SourcePath]*types.AnalysedFile, len(tree))
	for path, af := range tree {
		remaining[path] = af
	}

	allModuleDefs := types.SymbolSet{}
	for _, af := range tree {
		for _, sym := range af.ModuleDefs.Sorted() {
			allModuleDefs.Add(sym)
		}
	}

	compiledNames := types.SymbolSet{}
	var units []types.CompileUnit
	pass := 0

	for len(remaining) > 0 {
		pass++
		ready, blocked := partition(remaining, compiledNames, allModuleDefs)

		if len(ready) == 0 {
			return nil, &fabErrors.SchedulerStuckError{Blocked: blockedDeps(blocked, compiledNames, allModuleDefs)}
		}

		results, err := compilePass(ctx, ready, compiler, workers)
		if err != nil {
			return nil, fabErrors.NewCompileError(pass, err.(passFailures).failures)
		}
		units = append(units, results...)

		for _, af := range ready {
			for _, sym := range af.ModuleDefs.Sorted() {
				compiledNames.Add(sym)
			}
			delete(remaining, af.Fpath)
		}
	}

	return units, nil
}

// partition splits remaining into files whose module dependencies are all
// already satisfied by compiledNames ("ready") and the rest ("blocked").
// A file with no SymbolDeps at all, or whose deps are entirely non-module
// symbols (plain subroutines, C externs with no module of their own), is
// always ready.
func partition(remaining map[types.SourcePath]*types.AnalysedFile, compiledNames, allModuleDefs types.SymbolSet) (ready, blocked []*types.AnalysedFile) {
	paths := sortedKeys(remaining)
	for _, path := range paths {
		af := remaining[path]
		if dependenciesSatisfied(af, compiledNames, allModuleDefs) {
			ready = append(ready, af)
		} else {
			blocked = append(blocked, af)
		}
	}
	return ready, blocked
}

// dependenciesSatisfied reports whether every module af's symbol_deps
// intersects with allModuleDefs has already been compiled. Non-module
// symbol deps (plain subroutines, C externs) are ignored here: only a
// `use module_name` reference creates a build-order constraint, and a
// symbol that no file in the tree defines as a module can never block
// scheduling.
func dependenciesSatisfied(af *types.AnalysedFile, compiledNames, allModuleDefs types.SymbolSet) bool {
	for _, sym := range af.SymbolDeps.Sorted() {
		if allModuleDefs.Has(sym) && !compiledNames.Has(sym) {
			return false
		}
	}
	return true
}

type passFailures struct {
	failures map[types.SourcePath]error
}

func (p passFailures) Error() string { return fmt.Sprintf("%d file(s) failed to compile", len(p.failures)) }

// compilePass compiles every file in ready concurrently, bounded by
// workers, using a fresh errgroup (and therefore a fresh worker pool) for
// this pass only.
func compilePass(ctx context.Context, ready []*types.AnalysedFile, compiler Compiler, workers int) ([]types.CompileUnit, error) {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	results := make([]types.CompileUnit, len(ready))
	var mu sync.Mutex
	failures := map[types.SourcePath]error{}

	for i, af := range ready {
		i, af := i, af
		g.Go(func() error {
			unit, err := compiler.Compile(gctx, af)
			if err != nil {
				mu.Lock()
				failures[af.Fpath] = err
				mu.Unlock()
				return nil // collect every failure in the pass, don't short-circuit
			}
			results[i] = unit
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return nil, passFailures{failures: failures}
	}
	return results, nil
}

func blockedDeps(blocked []*types.AnalysedFile, compiledNames, allModuleDefs types.SymbolSet) map[types.SourcePath][]types.Symbol {
	out := map[types.SourcePath][]types.Symbol{}
	for _, af := range blocked {
		var waiting []types.Symbol
		for _, sym := range af.SymbolDeps.Sorted() {
			if allModuleDefs.Has(sym) && !compiledNames.Has(sym) {
				waiting = append(waiting, sym)
			}
		}
		out[af.Fpath] = waiting
	}
	return out
}

func sortedKeys(m map[types.SourcePath]*types.AnalysedFile) []types.SourcePath {
	out := make([]types.SourcePath, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
