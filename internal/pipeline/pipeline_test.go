package pipeline_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/metrics"
	"github.com/metoffice/fab-go/internal/pipeline"
	"github.com/metoffice/fab-go/internal/types"
)

type recordingStep struct {
	name string
	fn   func(store *types.ArtefactStore, metricsCh chan<- types.Sample) error
}

func (s recordingStep) Name() string { return s.name }

func (s recordingStep) Run(ctx context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metricsCh chan<- types.Sample) error {
	return s.fn(store, metricsCh)
}

func newConfig(t *testing.T, steps []types.Step) *types.BuildConfig {
	t.Helper()
	root := t.TempDir()
	return &types.BuildConfig{
		Label:  "t",
		Root:   root,
		Source: filepath.Join(root, "source"),
		Steps:  steps,
	}
}

func TestRunExecutesStepsInOrderAndCollectsMetrics(t *testing.T) {
	var order []string
	steps := []types.Step{
		recordingStep{name: "one", fn: func(store *types.ArtefactStore, ch chan<- types.Sample) error {
			order = append(order, "one")
			metrics.Send(ch, "g", "n", 1)
			return nil
		}},
		recordingStep{name: "two", fn: func(store *types.ArtefactStore, ch chan<- types.Sample) error {
			order = append(order, "two")
			metrics.Send(ch, "g", "n", 2)
			return nil
		}},
	}

	store, snapshot, err := pipeline.Run(context.Background(), newConfig(t, steps), slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, []string{"one", "two"}, order)
	assert.Equal(t, 3.0, snapshot["g"]["n"])
}

func TestRunStopsOnFirstStepError(t *testing.T) {
	var ran []string
	steps := []types.Step{
		recordingStep{name: "fails", fn: func(store *types.ArtefactStore, ch chan<- types.Sample) error {
			ran = append(ran, "fails")
			return assertErr
		}},
		recordingStep{name: "never", fn: func(store *types.ArtefactStore, ch chan<- types.Sample) error {
			ran = append(ran, "never")
			return nil
		}},
	}

	_, _, err := pipeline.Run(context.Background(), newConfig(t, steps), slog.Default())
	require.Error(t, err)
	assert.Equal(t, []string{"fails"}, ran)
}

func TestCopyIncludesStepFlattensAndDetectsNameClash(t *testing.T) {
	root := t.TempDir()
	srcA := filepath.Join(root, "a", "common.inc")
	srcB := filepath.Join(root, "b", "common.inc")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcA), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(srcB), 0o755))
	require.NoError(t, os.WriteFile(srcA, []byte("! a"), 0o644))
	require.NoError(t, os.WriteFile(srcB, []byte("! b"), 0o644))

	cfg := &types.BuildConfig{Label: "t", Root: root, Source: root}
	store := types.NewArtefactStore()
	store.AllSource = []types.SourcePath{types.SourcePath(srcA), types.SourcePath(srcB)}

	step := pipeline.CopyIncludesStep{}
	err := step.Run(context.Background(), store, cfg, nil)
	require.Error(t, err)
}

func TestCopyIncludesStepCopiesFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "sub", "only.inc")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("! only"), 0o644))

	cfg := &types.BuildConfig{Label: "t", Root: root, Source: root}
	store := types.NewArtefactStore()
	store.AllSource = []types.SourcePath{types.SourcePath(src)}

	step := pipeline.CopyIncludesStep{}
	require.NoError(t, step.Run(context.Background(), store, cfg, nil))

	got, err := os.ReadFile(filepath.Join(cfg.BuildOutput(), "only.inc"))
	require.NoError(t, err)
	assert.Equal(t, "! only", string(got))
}

var assertErr = stepError("boom")

type stepError string

func (e stepError) Error() string { return string(e) }
