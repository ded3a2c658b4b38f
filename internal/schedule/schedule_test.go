package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/schedule"
	"github.com/metoffice/fab-go/internal/types"
)

func analysedFile(t *testing.T, path string, moduleDefs, symbolDefs, symbolDeps []string) *types.AnalysedFile {
	t.Helper()
	af, err := types.NewAnalysedFile(
		types.SourcePath(path), 1,
		types.NewSymbolSet(moduleDefs...),
		types.NewSymbolSet(symbolDefs...),
		types.NewSymbolSet(symbolDeps...),
	)
	require.NoError(t, err)
	return af
}

func TestRunCompilesInDependencyOrder(t *testing.T) {
	tree := types.BuildTree{
		"main.f90": analysedFile(t, "main.f90", nil, []string{"p"}, []string{"m"}),
		"m.f90":    analysedFile(t, "m.f90", []string{"m"}, []string{"m"}, nil),
	}

	var order []types.SourcePath
	var mu sync.Mutex
	compiler := schedule.CompilerFunc(func(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
		mu.Lock()
		order = append(order, af.Fpath)
		mu.Unlock()
		return types.CompileUnit{Analysed: af, ObjectPath: af.Fpath + ".o"}, nil
	})

	units, err := schedule.Run(context.Background(), tree, compiler, 2)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	mIdx, mainIdx := -1, -1
	for i, p := range order {
		if p == "m.f90" {
			mIdx = i
		}
		if p == "main.f90" {
			mainIdx = i
		}
	}
	assert.Less(t, mIdx, mainIdx, "m.f90 must compile before main.f90 since main uses m")
}

func TestRunIgnoresNonModuleSymbolDepsAcrossFiles(t *testing.T) {
	// b.c calls helper(), defined in a.c, but neither file defines a
	// module: a plain C extern call carries no build-order constraint,
	// so the scheduler never reports b.c as stuck and compiles both files.
	tree := types.BuildTree{
		"a.c": analysedFile(t, "a.c", nil, []string{"helper"}, nil),
		"b.c": analysedFile(t, "b.c", nil, []string{"compute"}, []string{"helper"}),
	}

	var compiles int
	var mu sync.Mutex
	compiler := schedule.CompilerFunc(func(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
		mu.Lock()
		compiles++
		mu.Unlock()
		return types.CompileUnit{Analysed: af, ObjectPath: af.Fpath + ".o"}, nil
	})

	units, err := schedule.Run(context.Background(), tree, compiler, 2)
	require.NoError(t, err)
	assert.Len(t, units, 2)
	assert.Equal(t, 2, compiles)
}

func TestRunDetectsCycleAsStuck(t *testing.T) {
	tree := types.BuildTree{
		"a.f90": analysedFile(t, "a.f90", []string{"a"}, []string{"a"}, []string{"b"}),
		"b.f90": analysedFile(t, "b.f90", []string{"b"}, []string{"b"}, []string{"a"}),
	}

	_, err := schedule.Run(context.Background(), tree, schedule.CompilerFunc(func(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
		return types.CompileUnit{}, nil
	}), 2)

	var stuck *fabErrors.SchedulerStuckError
	require.True(t, errors.As(err, &stuck))
	assert.Len(t, stuck.Blocked, 2)
}

func TestRunAggregatesCompileFailures(t *testing.T) {
	tree := types.BuildTree{
		"a.f90": analysedFile(t, "a.f90", nil, []string{"a"}, nil),
	}

	failing := schedule.CompilerFunc(func(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
		return types.CompileUnit{}, errors.New("compile failed")
	})

	_, err := schedule.Run(context.Background(), tree, failing, 1)
	var compileErr *fabErrors.CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, 1, compileErr.Pass)
}
