package types

import "path/filepath"

// BuildConfig carries the run-scoped parameters every step reads: label,
// workspace root, source root, step list, multiprocessing flag, worker
// count, debug-skip flag. It is constructed once by the caller and
// passed read-only to each step's Run.
type BuildConfig struct {
	Label   string
	Root    string // $workspace/$project-label
	Source  string // $workspace/$project-label/source/<grab-label>
	Steps   []Step

	UseMultiprocessing bool
	NProcs             int
	DebugSkip          bool

	// SkipFiles names files to exclude from analysis entirely, distinct
	// from the walker's include/exclude globs.
	SkipFiles []string

	// UnreferencedDeps are symbol names the user declares as used without
	// a use/extern declaration.
	UnreferencedDeps []string

	PreprocessFlags FlagsConfig
	CompileFlags    FlagsConfig
	LinkFlags       FlagsConfig

	RootSymbol string // the program unit defining the build's entry point
}

// BuildOutput is the root directory preprocessed sources and objects are
// written under, mirroring the layout of Source.
func (c *BuildConfig) BuildOutput() string {
	return filepath.Join(c.Root, "build_output")
}

// AnalysisCachePath is the location of the persistent analysis cache.
func (c *BuildConfig) AnalysisCachePath() string {
	return filepath.Join(c.Root, "__analysis.csv")
}

// MetricsDir is the side-channel output directory.
func (c *BuildConfig) MetricsDir() string {
	return filepath.Join(c.Root, "metrics")
}

// RelocateToOutput maps a path under Source to the corresponding path
// under BuildOutput, preserving the relative structure.
func (c *BuildConfig) RelocateToOutput(src SourcePath) (SourcePath, error) {
	rel, err := filepath.Rel(c.Source, string(src))
	if err != nil {
		return "", err
	}
	return SourcePath(filepath.Join(c.BuildOutput(), rel)), nil
}

// Workers returns the number of worker goroutines to use for a parallel
// fan-out phase: max(1, NProcs) if multiprocessing is enabled, else 1.
func (c *BuildConfig) Workers() int {
	if !c.UseMultiprocessing {
		return 1
	}
	if c.NProcs < 1 {
		return 1
	}
	return c.NProcs
}
