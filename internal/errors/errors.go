// Package errors defines the typed error family used to report fatal and
// aggregate failures across the build pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/metoffice/fab-go/internal/types"
)

// ConfigError represents a configuration error, such as an unreadable or
// unparseable .fab.kdl file. Fatal at step entry. A malformed analysis
// cache is reported as CacheError instead.
type ConfigError struct {
	Field      string
	Underlying error
	Timestamp  time.Time
}

func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %v", e.Field, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// PreprocessError aggregates per-file preprocessor failures into a
// single fatal error for the step: if any file failed, the step fails
// with every failure's cause in one message.
type PreprocessError struct {
	Failures map[types.SourcePath]error
}

func NewPreprocessError(failures map[types.SourcePath]error) *PreprocessError {
	return &PreprocessError{Failures: failures}
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocessing failed for %d file(s): %v", len(e.Failures), joinCauses(e.Failures))
}

func (e *PreprocessError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

// AnalysisError aggregates per-file parse failures (EmptySourceFile is
// not an error and never appears here).
type AnalysisError struct {
	Failures map[types.SourcePath]error
}

func NewAnalysisError(failures map[types.SourcePath]error) *AnalysisError {
	return &AnalysisError{Failures: failures}
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for %d file(s): %v", len(e.Failures), joinCauses(e.Failures))
}

func (e *AnalysisError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

// BuildTreeError reports a file in the build tree whose file_deps include
// a path absent from the tree. Fatal before compilation starts.
type BuildTreeError struct {
	Missing types.PathSet
}

func NewBuildTreeError(missing types.PathSet) *BuildTreeError {
	return &BuildTreeError{Missing: missing}
}

func (e *BuildTreeError) Error() string {
	return fmt.Sprintf("build tree has %d missing dependenc(ies): %v", len(e.Missing), e.Missing.Sorted())
}

// CompileError aggregates per-pass compile failures. Fatal; no partial
// artefact is emitted.
type CompileError struct {
	Pass     int
	Failures map[types.SourcePath]error
}

func NewCompileError(pass int, failures map[types.SourcePath]error) *CompileError {
	return &CompileError{Pass: pass, Failures: failures}
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compilation failed in pass %d for %d file(s): %v", e.Pass, len(e.Failures), joinCauses(e.Failures))
}

func (e *CompileError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

// SchedulerStuckError is returned when a pass produces zero ready files
// while files remain: the dependency graph has a cycle or an
// unresolvable dependency.
type SchedulerStuckError struct {
	Blocked map[types.SourcePath][]types.Symbol
}

func (e *SchedulerStuckError) Error() string {
	return fmt.Sprintf("dependency graph has unresolvable dep or cycle: %d file(s) blocked: %v", len(e.Blocked), e.Blocked)
}

// CacheError reports a malformed analysis cache file. An absent cache is
// not an error; this is reserved for a present-but-unparseable cache.
type CacheError struct {
	Path       string
	Underlying error
}

func NewCacheError(path string, err error) *CacheError {
	return &CacheError{Path: path, Underlying: err}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("analysis cache %s is malformed: %v", e.Path, e.Underlying)
}

func (e *CacheError) Unwrap() error { return e.Underlying }

func joinCauses(failures map[types.SourcePath]error) error {
	causes := make([]error, 0, len(failures))
	for path, err := range failures {
		causes = append(causes, fmt.Errorf("%s: %w", path, err))
	}
	return errors.Join(causes...)
}
