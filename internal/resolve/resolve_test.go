package resolve_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/resolve"
	"github.com/metoffice/fab-go/internal/types"
)

func af(t *testing.T, path string, moduleDefs, symbolDefs, symbolDeps []string) *types.AnalysedFile {
	t.Helper()
	f, err := types.NewAnalysedFile(
		types.SourcePath(path), types.FileHash(1),
		types.NewSymbolSet(moduleDefs...),
		types.NewSymbolSet(symbolDefs...),
		types.NewSymbolSet(symbolDeps...),
	)
	require.NoError(t, err)
	return f
}

func TestBuildSymbolTableAmbiguityPicksLexicographicFirst(t *testing.T) {
	files := map[types.SourcePath]*types.AnalysedFile{
		"b.f90": af(t, "b.f90", nil, []string{"shared"}, nil),
		"a.f90": af(t, "a.f90", nil, []string{"shared"}, nil),
	}
	result := resolve.BuildSymbolTable(files)

	assert.Equal(t, types.SourcePath("a.f90"), result.Table[mustSym(t, "shared")])
	require.Len(t, result.Ambiguous, 1)
	assert.Equal(t, types.SourcePath("a.f90"), result.Ambiguous[0].Chosen)
	assert.ElementsMatch(t, []types.SourcePath{"b.f90"}, result.Ambiguous[0].Rejected)
}

func TestResolveFileDepsWiresDependencies(t *testing.T) {
	files := map[types.SourcePath]*types.AnalysedFile{
		"main.f90": af(t, "main.f90", nil, []string{"p"}, []string{"m", "m_sub"}),
		"m.f90":    af(t, "m.f90", []string{"m"}, []string{"m", "m_sub"}, nil),
	}
	table := resolve.BuildSymbolTable(files).Table

	unresolved := resolve.ResolveFileDeps(files, table)
	assert.Empty(t, unresolved)
	assert.True(t, files["main.f90"].FileDeps.Has("m.f90"))
}

func TestResolveFileDepsReportsUnresolvedWithSuggestion(t *testing.T) {
	files := map[types.SourcePath]*types.AnalysedFile{
		"main.f90": af(t, "main.f90", nil, []string{"p"}, []string{"helpr"}),
		"h.f90":    af(t, "h.f90", nil, []string{"helper"}, nil),
	}
	table := resolve.BuildSymbolTable(files).Table

	unresolved := resolve.ResolveFileDeps(files, table)
	require.Len(t, unresolved, 1)
	assert.Equal(t, mustSym(t, "helpr"), unresolved[0].Symbol)
	assert.True(t, unresolved[0].HasSuggestion)
	assert.Equal(t, mustSym(t, "helper"), unresolved[0].Suggestion)
}

func TestResolveCommentedFileDeps(t *testing.T) {
	main := af(t, "main.f90", nil, []string{"p"}, nil)
	main.MOCommentedFileDeps.Add("legacy.o")
	files := map[types.SourcePath]*types.AnalysedFile{
		"main.f90":  main,
		"legacy.c":  af(t, "legacy.c", nil, []string{"legacy_fn"}, nil),
	}
	table := resolve.BuildSymbolTable(files).Table

	resolve.ResolveFileDeps(files, table)
	assert.True(t, main.FileDeps.Has("legacy.c"))
}

func TestSpliceUnreferencedAddsToEveryFile(t *testing.T) {
	files := map[types.SourcePath]*types.AnalysedFile{
		"a.f90":       af(t, "a.f90", nil, []string{"a"}, nil),
		"support.f90": af(t, "support.f90", nil, []string{"runtime_support"}, nil),
	}
	table := resolve.BuildSymbolTable(files).Table
	resolve.SpliceUnreferenced(slog.Default(), files, table, []string{"runtime_support"})
	assert.True(t, files["a.f90"].FileDeps.Has("support.f90"))
	assert.False(t, files["support.f90"].FileDeps.Has("support.f90"))
}

func mustSym(t *testing.T, raw string) types.Symbol {
	t.Helper()
	sym, ok := types.NewSymbol(raw)
	require.True(t, ok)
	return sym
}
