package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/cache"
	"github.com/metoffice/fab-go/internal/types"
)

func TestLoadMissingCacheIsEmptyNotError(t *testing.T) {
	got, err := cache.Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadMalformedCacheIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,the,right,header\n"), 0o644))

	_, err := cache.Load(path)
	require.Error(t, err)
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")

	w, err := cache.Open(path)
	require.NoError(t, err)

	af, err := types.NewAnalysedFile(
		"a.f90", types.FileHash(42),
		types.NewSymbolSet("m"),
		types.NewSymbolSet("m", "m_sub"),
		types.NewSymbolSet("other_mod"),
	)
	require.NoError(t, err)
	af.FileDeps.Add("other.f90")
	af.MOCommentedFileDeps.Add("legacy.o")

	require.NoError(t, w.WriteRow(af))
	require.NoError(t, w.Close())

	loaded, err := cache.Load(path)
	require.NoError(t, err)
	require.Contains(t, loaded, types.SourcePath("a.f90"))

	got := loaded["a.f90"]
	assert.Equal(t, types.FileHash(42), got.FileHash)
	assert.True(t, got.ModuleDefs.Has("m"))
	assert.True(t, got.SymbolDeps.Has("other_mod"))
	assert.True(t, got.FileDeps.Has("other.f90"))
	assert.True(t, got.MOCommentedFileDeps.Has("legacy.o"))
}

func TestPartitionSplitsUnchangedAndStale(t *testing.T) {
	unchangedFile, err := types.NewAnalysedFile("a.f90", types.FileHash(1), nil, nil, nil)
	require.NoError(t, err)

	prior := map[types.SourcePath]*types.AnalysedFile{
		"a.f90": unchangedFile,
	}
	current := map[types.SourcePath]types.FileHash{
		"a.f90": 1, // unchanged
		"b.f90": 2, // new, not in prior
	}

	unchanged, stale := cache.Partition(prior, current)
	assert.Contains(t, unchanged, types.SourcePath("a.f90"))
	assert.ElementsMatch(t, []types.SourcePath{"b.f90"}, stale)
}
