package types

import "fmt"

// ArtefactStore is the mutable bag of named intermediates threaded between
// steps within a single run. Each named artefact gets its own typed slot
// (per DESIGN.md) rather than a loosely-typed map, so a step reading the
// wrong artefact name is a compile error; Get remains available for the
// handful of cases (CLI introspection, tests) that want lookup by name.
type ArtefactStore struct {
	AllSource           []SourcePath
	PragmadC            []SourcePath
	PreprocessedC       []SourcePath
	PreprocessedFortran []SourcePath
	AnalysedFiles       map[SourcePath]*AnalysedFile
	BuildTreeResult     BuildTree
	MissingDeps         PathSet
	CompiledC           []CompileUnit
	CompiledFortran     []CompileUnit
	LinkedOutput        SourcePath
}

// NewArtefactStore creates an empty store, as at the start of a run.
func NewArtefactStore() *ArtefactStore {
	return &ArtefactStore{
		AnalysedFiles: map[SourcePath]*AnalysedFile{},
	}
}

// Get looks up an artefact by its external name: all_source, pragmad_c,
// preprocessed_c, preprocessed_fortran, analysed_files, build_tree,
// compiled_c, compiled_fortran.
func (s *ArtefactStore) Get(name string) (any, bool) {
	switch name {
	case "all_source":
		return s.AllSource, true
	case "pragmad_c":
		return s.PragmadC, true
	case "preprocessed_c":
		return s.PreprocessedC, true
	case "preprocessed_fortran":
		return s.PreprocessedFortran, true
	case "analysed_files":
		return s.AnalysedFiles, true
	case "build_tree":
		return s.BuildTreeResult, true
	case "compiled_c":
		return s.CompiledC, true
	case "compiled_fortran":
		return s.CompiledFortran, true
	default:
		return nil, false
	}
}

// AllCompiled returns the union of compiled C and Fortran units, the
// source the archiver/linker step reads from.
func (s *ArtefactStore) AllCompiled() []CompileUnit {
	out := make([]CompileUnit, 0, len(s.CompiledC)+len(s.CompiledFortran))
	out = append(out, s.CompiledC...)
	out = append(out, s.CompiledFortran...)
	return out
}

// String renders a short summary, useful for CLI progress output.
func (s *ArtefactStore) String() string {
	return fmt.Sprintf("artefacts{source=%d pragmad_c=%d analysed=%d tree=%d compiled_c=%d compiled_fortran=%d}",
		len(s.AllSource), len(s.PragmadC), len(s.AnalysedFiles), len(s.BuildTreeResult), len(s.CompiledC), len(s.CompiledFortran))
}
