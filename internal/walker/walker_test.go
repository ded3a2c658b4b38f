package walker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/types"
	"github.com/metoffice/fab-go/internal/walker"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("! comment\n"), 0o644))
}

func TestWalkDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.f90")
	writeFile(t, root, "a.f90")
	writeFile(t, root, "sub/c.f90")

	got, err := walker.Walk(root, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, string(got[0]) < string(got[1]) && string(got[1]) < string(got[2]))
}

func TestWalkEmptyIsFatal(t *testing.T) {
	root := t.TempDir()
	_, err := walker.Walk(root, nil)
	assert.Error(t, err)
}

func TestWalkLastMatchWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/a.f90")
	writeFile(t, root, "keep/a.mod")
	writeFile(t, root, "drop/b.f90")

	rules := []types.FilterRule{
		{Fragments: []string{"**/*.mod"}, Include: false},
		{Fragments: []string{"drop/**"}, Include: false},
		{Fragments: []string{"drop/b.f90"}, Include: true}, // last rule wins, overrides the drop/** exclude
	}

	got, err := walker.Walk(root, rules)
	require.NoError(t, err)

	var rels []string
	for _, p := range got {
		rel, _ := filepath.Rel(root, string(p))
		rels = append(rels, filepath.ToSlash(rel))
	}
	assert.Contains(t, rels, "keep/a.f90")
	assert.Contains(t, rels, "drop/b.f90")
	assert.NotContains(t, rels, "keep/a.mod")
}
