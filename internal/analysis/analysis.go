// Package analysis implements the source analyser: per-file extraction
// of module/symbol definitions, symbol dependencies and "DEPENDS ON:"
// comment file dependencies, for Fortran and C source. The analyser is
// pure: no I/O besides reading the given file.
package analysis

import (
	"fmt"
	"hash/crc32"
	"os"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// Result is the outcome of analysing one file: exactly one of Analysed or
// Empty is non-nil (Err is returned separately by Analyser.Analyse).
type Result struct {
	Analysed *types.AnalysedFile
	Empty    *types.EmptySourceFile
}

// Analyser extracts an AnalysedFile (or reports EmptySourceFile) from a
// single file's content.
type Analyser interface {
	// CanHandle reports whether this analyser handles files with the
	// given path (by extension).
	CanHandle(path types.SourcePath) bool
	// Analyse parses content (already read from path) and returns the
	// analysis result.
	Analyse(path types.SourcePath, hash types.FileHash, content []byte) (Result, error)
}

// HashFile computes the on-disk FileHash: CRC-32, IEEE polynomial, the
// same digest family a zlib.crc32-based checksum uses.
func HashFile(content []byte) types.FileHash {
	return types.FileHash(crc32.ChecksumIEEE(content))
}

// ReadAndHash reads path and returns its content and FileHash together,
// so the cache and the analyser always agree on what was hashed.
func ReadAndHash(path types.SourcePath) ([]byte, types.FileHash, error) {
	content, err := os.ReadFile(string(path))
	if err != nil {
		return nil, 0, fmt.Errorf("fab: reading %s: %w", path, err)
	}
	return content, HashFile(content), nil
}

// Registry dispatches to the Fortran or C analyser based on file
// extension.
type Registry struct {
	analysers []Analyser
}

// NewRegistry builds the default Fortran+C registry.
func NewRegistry() *Registry {
	return &Registry{analysers: []Analyser{NewFortranAnalyser(), NewCAnalyser()}}
}

// Register adds an additional analyser, checked before the defaults.
func (r *Registry) Register(a Analyser) {
	r.analysers = append([]Analyser{a}, r.analysers...)
}

func (r *Registry) For(path types.SourcePath) (Analyser, bool) {
	for _, a := range r.analysers {
		if a.CanHandle(path) {
			return a, true
		}
	}
	return nil, false
}

func hasAnySuffix(path string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
