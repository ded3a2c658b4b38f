package config

import (
	"path/filepath"
	"runtime"

	"github.com/metoffice/fab-go/internal/types"
)

// DefaultWorkers is max(1, cpu_count-1): the default worker count used
// whenever a caller doesn't override it, leaving one core free for the
// orchestrating process itself.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 1
}

// Option configures a BuildConfig, composing a step list and settings in
// code rather than from a project-wide settings file.
type Option func(*types.BuildConfig)

// WithSteps sets the step list.
func WithSteps(steps ...types.Step) Option {
	return func(c *types.BuildConfig) { c.Steps = steps }
}

// WithMultiprocessing enables multiprocessing with the given worker count.
func WithMultiprocessing(nProcs int) Option {
	return func(c *types.BuildConfig) {
		c.UseMultiprocessing = true
		c.NProcs = nProcs
	}
}

// WithDebugSkip enables the debug-skip bypass used to resume an
// interrupted run without re-running expensive external tool invocations.
func WithDebugSkip() Option {
	return func(c *types.BuildConfig) { c.DebugSkip = true }
}

// WithRootSymbol sets the entry-point symbol the subtree extractor starts
// from.
func WithRootSymbol(symbol string) Option {
	return func(c *types.BuildConfig) { c.RootSymbol = symbol }
}

// WithFlags merges a loaded ToolFlags into the config.
func WithFlags(tf *ToolFlags) Option {
	return func(c *types.BuildConfig) {
		if tf == nil {
			return
		}
		c.PreprocessFlags = tf.Preprocess
		c.CompileFlags = tf.Compile
		c.LinkFlags = tf.Link
		c.SkipFiles = tf.SkipFiles
		c.UnreferencedDeps = tf.UnreferencedDeps
	}
}

// New builds a BuildConfig for label, rooted at workspaceRoot/label, with
// its source tree at workspaceRoot/label/source, applying every opt in
// order: label, then settings, then steps.
func New(label, workspaceRoot string, opts ...Option) *types.BuildConfig {
	root := filepath.Join(WorkspaceRoot(workspaceRoot), label)
	c := &types.BuildConfig{
		Label:              label,
		Root:               root,
		Source:             filepath.Join(root, "source"),
		UseMultiprocessing: true,
		NProcs:             DefaultWorkers(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
