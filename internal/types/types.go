// Package types defines the core data model shared across every build step:
// source paths, content hashes, symbols, analysis records and the
// in-memory artefact store threaded between steps in a single run.
package types

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SourcePath is an absolute path to a file on disk. After the preprocessor
// step every path lies under $workspace/build_output mirroring its
// position under $workspace/source.
type SourcePath string

// FileHash is a 32-bit content checksum (CRC-32 family), computed once per
// file and used by the analysis cache to detect changed content.
type FileHash uint32

// Symbol is a lower-cased identifier string: a module, subroutine,
// function or C extern name.
type Symbol string

// NewSymbol lower-cases and validates a raw identifier.
func NewSymbol(raw string) (Symbol, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	return Symbol(s), true
}

// SymbolSet is a set of Symbol, used for module/symbol definitions and
// dependencies.
type SymbolSet map[Symbol]struct{}

// NewSymbolSet builds a SymbolSet from a slice, silently ignoring
// empty/whitespace names.
func NewSymbolSet(names ...string) SymbolSet {
	s := make(SymbolSet, len(names))
	for _, n := range names {
		if sym, ok := NewSymbol(n); ok {
			s[sym] = struct{}{}
		}
	}
	return s
}

// Add inserts a symbol into the set.
func (s SymbolSet) Add(sym Symbol) { s[sym] = struct{}{} }

// Has reports whether sym is a member.
func (s SymbolSet) Has(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

// Sorted returns the set's members in lexicographic order.
func (s SymbolSet) Sorted() []Symbol {
	out := make([]Symbol, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SubsetOf reports whether every member of s is also a member of other.
func (s SymbolSet) SubsetOf(other SymbolSet) bool {
	for sym := range s {
		if !other.Has(sym) {
			return false
		}
	}
	return true
}

// Join renders the set as a semicolon-joined string in sorted order, the
// on-disk encoding used by the analysis cache. An empty set renders as "".
func (s SymbolSet) Join() string {
	sorted := s.Sorted()
	strs := make([]string, len(sorted))
	for i, sym := range sorted {
		strs[i] = string(sym)
	}
	return strings.Join(strs, ";")
}

// ParseSymbolSet is the inverse of Join.
func ParseSymbolSet(encoded string) SymbolSet {
	if encoded == "" {
		return SymbolSet{}
	}
	return NewSymbolSet(strings.Split(encoded, ";")...)
}

// PathSet is a set of SourcePath, used for file-level dependencies.
type PathSet map[SourcePath]struct{}

// NewPathSet builds a PathSet from a slice of strings.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		s[SourcePath(p)] = struct{}{}
	}
	return s
}

func (s PathSet) Add(p SourcePath) { s[p] = struct{}{} }

func (s PathSet) Has(p SourcePath) bool {
	_, ok := s[p]
	return ok
}

func (s PathSet) Sorted() []SourcePath {
	out := make([]SourcePath, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PathSet) Join() string {
	sorted := s.Sorted()
	strs := make([]string, len(sorted))
	for i, p := range sorted {
		strs[i] = string(p)
	}
	return strings.Join(strs, ";")
}

// ParsePathSet is the inverse of PathSet.Join.
func ParsePathSet(encoded string) PathSet {
	if encoded == "" {
		return PathSet{}
	}
	return NewPathSet(strings.Split(encoded, ";")...)
}

// StringSet is a set of plain strings, used for mo_commented_file_deps
// (bare filenames, not full paths, and not lower-cased symbols).
type StringSet map[string]struct{}

func NewStringSet(vals ...string) StringSet {
	s := make(StringSet, len(vals))
	for _, v := range vals {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

func (s StringSet) Add(v string) { s[v] = struct{}{} }

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) Join() string { return strings.Join(s.Sorted(), ";") }

func ParseStringSet(encoded string) StringSet {
	if encoded == "" {
		return StringSet{}
	}
	return NewStringSet(strings.Split(encoded, ";")...)
}

// AnalysedFile is the central analysis record produced by the source
// analyser and consumed by the dependency resolver, the subtree
// extractor and the compile scheduler.
type AnalysedFile struct {
	Fpath                SourcePath
	FileHash             FileHash
	ModuleDefs           SymbolSet // subset of SymbolDefs
	SymbolDefs           SymbolSet
	SymbolDeps           SymbolSet
	FileDeps             PathSet   // populated by the resolver, not by the analyser
	MOCommentedFileDeps  StringSet // "DEPENDS ON: foo.o" filenames
}

// NewAnalysedFile constructs an AnalysedFile, enforcing the invariant that
// ModuleDefs is a subset of SymbolDefs.
func NewAnalysedFile(fpath SourcePath, hash FileHash, moduleDefs, symbolDefs, symbolDeps SymbolSet) (*AnalysedFile, error) {
	if moduleDefs == nil {
		moduleDefs = SymbolSet{}
	}
	if symbolDefs == nil {
		symbolDefs = SymbolSet{}
	}
	if symbolDeps == nil {
		symbolDeps = SymbolSet{}
	}
	if !moduleDefs.SubsetOf(symbolDefs) {
		return nil, fmt.Errorf("fab: module_defs must be a subset of symbol_defs for %s", fpath)
	}
	return &AnalysedFile{
		Fpath:               fpath,
		FileHash:            hash,
		ModuleDefs:          moduleDefs,
		SymbolDefs:          symbolDefs,
		SymbolDeps:          symbolDeps,
		FileDeps:            PathSet{},
		MOCommentedFileDeps: StringSet{},
	}, nil
}

// Hash returns a fast, stable fingerprint of the full AnalysedFile tuple,
// used as a map/set key (equality and hashing are by value on the full
// tuple per the data model). This is distinct from FileHash, which is the
// on-disk content checksum.
func (a *AnalysedFile) Hash() uint64 {
	var b strings.Builder
	b.WriteString(string(a.Fpath))
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d|", a.FileHash)
	b.WriteString(a.ModuleDefs.Join())
	b.WriteByte('|')
	b.WriteString(a.SymbolDefs.Join())
	b.WriteByte('|')
	b.WriteString(a.SymbolDeps.Join())
	b.WriteByte('|')
	b.WriteString(a.FileDeps.Join())
	b.WriteByte('|')
	b.WriteString(a.MOCommentedFileDeps.Join())
	return xxhash.Sum64String(b.String())
}

// Equal reports value equality on the full tuple.
func (a *AnalysedFile) Equal(other *AnalysedFile) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Hash() == other.Hash()
}

// EmptySourceFile marks a file whose parse yielded no symbols at all
// (comments/whitespace only); it is not an error, and it is not cached.
type EmptySourceFile struct {
	Fpath SourcePath
}

// BuildTree is the transitively-closed subset of analysed files required
// to build a target, keyed by path.
type BuildTree map[SourcePath]*AnalysedFile

// CompileUnit pairs an AnalysedFile with the path of the object file it
// produced.
type CompileUnit struct {
	Analysed   *AnalysedFile
	ObjectPath SourcePath
}

// Step is the capability every pipeline component shares: read named
// inputs from the store, write named outputs, report samples on the
// metrics channel. No deeper hierarchy is modelled (see DESIGN.md).
type Step interface {
	Name() string
	Run(ctx context.Context, store *ArtefactStore, cfg *BuildConfig, metrics chan<- Sample) error
}

// Sample is a single (group, name, value) metrics observation sent from a
// worker to the collector.
type Sample struct {
	Group string
	Name  string
	Value float64
}
