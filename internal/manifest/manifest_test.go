package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/manifest"
)

func TestFinishWritesTOMLManifest(t *testing.T) {
	root := t.TempDir()
	m := manifest.New("jules")
	m.RecordStep("walk")
	m.RecordStep("analyse")

	require.NoError(t, m.Finish(root, nil))

	data, err := os.ReadFile(filepath.Join(root, "fab-manifest.toml"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, "jules", got["label"])
	assert.Equal(t, "crc32-ieee", got["digest_family"])
	assert.Equal(t, false, got["failed"])
}

func TestFinishRecordsFailure(t *testing.T) {
	root := t.TempDir()
	m := manifest.New("jules")
	require.NoError(t, m.Finish(root, errors.New("compile failed")))

	data, err := os.ReadFile(filepath.Join(root, "fab-manifest.toml"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, true, got["failed"])
	assert.Equal(t, "compile failed", got["error"])
}
