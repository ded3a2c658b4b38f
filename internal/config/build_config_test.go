package config_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metoffice/fab-go/internal/config"
)

func TestNewAppliesOptionsInOrder(t *testing.T) {
	t.Setenv("FAB_WORKSPACE", "")
	cfg := config.New("myproject", "/workspace",
		config.WithMultiprocessing(4),
		config.WithRootSymbol("main_program"),
	)

	assert.Equal(t, "myproject", cfg.Label)
	assert.Equal(t, filepath.Join("/workspace", "myproject"), cfg.Root)
	assert.Equal(t, filepath.Join("/workspace", "myproject", "source"), cfg.Source)
	assert.True(t, cfg.UseMultiprocessing)
	assert.Equal(t, 4, cfg.NProcs)
	assert.Equal(t, "main_program", cfg.RootSymbol)
}

func TestWithFlagsMergesToolFlags(t *testing.T) {
	tf := &config.ToolFlags{SkipFiles: []string{"a.f90"}}
	cfg := config.New("p", "/workspace", config.WithFlags(tf))
	assert.Equal(t, []string{"a.f90"}, cfg.SkipFiles)
}

func TestNewDefaultsWorkersToNumCPUMinusOne(t *testing.T) {
	t.Setenv("FAB_WORKSPACE", "")
	cfg := config.New("myproject", "/workspace")
	assert.Equal(t, config.DefaultWorkers(), cfg.NProcs)
	assert.LessOrEqual(t, cfg.NProcs, runtime.NumCPU())
	assert.GreaterOrEqual(t, cfg.NProcs, 1)
}
