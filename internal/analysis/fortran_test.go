package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/analysis"
	"github.com/metoffice/fab-go/internal/types"
)

// TestFortranAnalyserSingleLineStatements exercises the S1 scenario: a
// semicolon-separated program unit that uses and calls into a module.
func TestFortranAnalyserSingleLineStatements(t *testing.T) {
	a := analysis.NewFortranAnalyser()

	main, err := a.Analyse("main.f90", types.FileHash(1),
		[]byte("program p; use m; call m_sub; end\n"))
	require.NoError(t, err)
	require.NotNil(t, main.Analysed)
	assert.True(t, main.Analysed.SymbolDefs.Has(mustSymbol(t, "p")))
	assert.True(t, main.Analysed.SymbolDeps.Has(mustSymbol(t, "m")))
	assert.True(t, main.Analysed.SymbolDeps.Has(mustSymbol(t, "m_sub")))

	mod, err := a.Analyse("m.f90", types.FileHash(2),
		[]byte("module m; contains; subroutine m_sub; end subroutine; end module\n"))
	require.NoError(t, err)
	require.NotNil(t, mod.Analysed)
	assert.True(t, mod.Analysed.ModuleDefs.Has(mustSymbol(t, "m")))
	assert.True(t, mod.Analysed.SymbolDefs.Has(mustSymbol(t, "m_sub")))
	assert.Empty(t, mod.Analysed.SymbolDeps)
}

// TestFortranAnalyserUnresolvedUse exercises S2: an additional "use n" with
// no corresponding source file is still recorded as a dependency; analysis
// itself never fails over an unresolved symbol.
func TestFortranAnalyserUnresolvedUse(t *testing.T) {
	a := analysis.NewFortranAnalyser()
	result, err := a.Analyse("main.f90", types.FileHash(1),
		[]byte("program p; use m; use n; call m_sub; end\n"))
	require.NoError(t, err)
	require.NotNil(t, result.Analysed)
	assert.True(t, result.Analysed.SymbolDeps.Has(mustSymbol(t, "n")))
}

// TestFortranAnalyserDependsOnComment exercises S3: a "DEPENDS ON:" comment
// directive is parsed independent of statement splitting.
func TestFortranAnalyserDependsOnComment(t *testing.T) {
	a := analysis.NewFortranAnalyser()
	result, err := a.Analyse("legacy.f90", types.FileHash(1),
		[]byte("subroutine legacy()\n! DEPENDS ON: helper.o, other.o\nend subroutine\n"))
	require.NoError(t, err)
	require.NotNil(t, result.Analysed)
	assert.True(t, result.Analysed.MOCommentedFileDeps.Has("helper.o"))
	assert.True(t, result.Analysed.MOCommentedFileDeps.Has("other.o"))
}

// TestFortranAnalyserCommentOnlyFileIsEmpty exercises S6: a file with no
// definitions, dependencies, or comment directives reports EmptySourceFile.
func TestFortranAnalyserCommentOnlyFileIsEmpty(t *testing.T) {
	a := analysis.NewFortranAnalyser()
	result, err := a.Analyse("blank.f90", types.FileHash(1),
		[]byte("! just a comment\n! another comment\n"))
	require.NoError(t, err)
	assert.Nil(t, result.Analysed)
	require.NotNil(t, result.Empty)
}

func TestFortranAnalyserIntrinsicsExcluded(t *testing.T) {
	a := analysis.NewFortranAnalyser()
	result, err := a.Analyse("uses_intrinsics.f90", types.FileHash(1),
		[]byte("subroutine s()\nuse iso_c_binding\nx = sqrt(y)\nend subroutine\n"))
	require.NoError(t, err)
	require.NotNil(t, result.Analysed)
	assert.False(t, result.Analysed.SymbolDeps.Has(mustSymbol(t, "iso_c_binding")))
	assert.False(t, result.Analysed.SymbolDeps.Has(mustSymbol(t, "sqrt")))
}
