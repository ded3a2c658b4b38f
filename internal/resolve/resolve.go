// Package resolve implements the dependency resolver: it inverts every
// analysed file's symbol definitions into a Symbol -> SourcePath table,
// then uses that table to turn each file's symbol_deps and "DEPENDS ON:"
// comment directives into concrete file_deps.
package resolve

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/metoffice/fab-go/internal/types"
)

// SymbolTable maps a defined symbol to the single source file that defines
// it, chosen by BuildSymbolTable's ambiguity rule.
type SymbolTable map[types.Symbol]types.SourcePath

// AmbiguousSymbol records a symbol defined in more than one file; only the
// first (lexicographically smallest path) is kept in the table.
type AmbiguousSymbol struct {
	Symbol   types.Symbol
	Chosen   types.SourcePath
	Rejected []types.SourcePath
}

// BuildResult is the outcome of building a symbol table: the table itself,
// plus every ambiguity encountered along the way (for logging, never
// fatal).
type BuildResult struct {
	Table      SymbolTable
	Ambiguous  []AmbiguousSymbol
}

// BuildSymbolTable inverts every analysed file's SymbolDefs into a
// SymbolTable. When two or more files define the same symbol, the
// lexicographically first path wins and the rest are recorded as
// ambiguous: a warning, never a fatal error.
func BuildSymbolTable(files map[types.SourcePath]*types.AnalysedFile) BuildResult {
	claims := map[types.Symbol][]types.SourcePath{}
	paths := make([]types.SourcePath, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		for _, sym := range files[path].SymbolDefs.Sorted() {
			claims[sym] = append(claims[sym], path)
		}
	}

	table := SymbolTable{}
	var ambiguous []AmbiguousSymbol
	for sym, owners := range claims {
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
		table[sym] = owners[0]
		if len(owners) > 1 {
			ambiguous = append(ambiguous, AmbiguousSymbol{Symbol: sym, Chosen: owners[0], Rejected: owners[1:]})
		}
	}
	sort.Slice(ambiguous, func(i, j int) bool { return ambiguous[i].Symbol < ambiguous[j].Symbol })

	return BuildResult{Table: table, Ambiguous: ambiguous}
}

// LogAmbiguities warns about every ambiguous symbol at the given logger.
func LogAmbiguities(log *slog.Logger, ambiguous []AmbiguousSymbol) {
	for _, a := range ambiguous {
		log.Info("symbol defined in multiple files, using lexicographically first",
			"symbol", string(a.Symbol), "chosen", string(a.Chosen), "rejected", pathsToStrings(a.Rejected))
	}
}

// UnresolvedSymbol records a symbol_deps entry with no definer in the
// symbol table, along with the nearest-match suggestion (if any) surfaced
// to help a user spot a typo'd USE/CALL.
type UnresolvedSymbol struct {
	File       types.SourcePath
	Symbol     types.Symbol
	Suggestion types.Symbol
	HasSuggestion bool
}

// suggestionThreshold is the minimum Jaro-Winkler similarity for an
// unresolved symbol's nearest match to be worth reporting.
const suggestionThreshold = 0.82

// ResolveFileDeps turns every analysed file's SymbolDeps and
// MOCommentedFileDeps into FileDeps, using table to look up each symbol's
// defining file. Unresolved symbols do not abort resolution; they are
// returned for the caller to report as warnings, and the subtree
// extractor is responsible for deciding whether a missing dependency is
// fatal for a particular build.
func ResolveFileDeps(files map[types.SourcePath]*types.AnalysedFile, table SymbolTable) (unresolved []UnresolvedSymbol) {
	symbolNames := table.names()

	paths := make([]types.SourcePath, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		af := files[path]
		for _, sym := range af.SymbolDeps.Sorted() {
			definer, ok := table[sym]
			if !ok {
				u := UnresolvedSymbol{File: path, Symbol: sym}
				if best, ok := nearestMatch(string(sym), symbolNames); ok {
					u.Suggestion, u.HasSuggestion = types.Symbol(best), true
				}
				unresolved = append(unresolved, u)
				continue
			}
			if definer == path {
				continue
			}
			af.FileDeps.Add(definer)
		}
		for _, name := range af.MOCommentedFileDeps.Sorted() {
			if cPath, ok := resolveCommentedDep(name, files); ok {
				af.FileDeps.Add(cPath)
			}
		}
	}
	return unresolved
}

// resolveCommentedDep matches a "DEPENDS ON: foo.o" filename against the
// analysed .c file whose basename (minus extension) is "foo".
func resolveCommentedDep(objectName string, files map[types.SourcePath]*types.AnalysedFile) (types.SourcePath, bool) {
	stem := strings.TrimSuffix(objectName, ".o")
	for path := range files {
		base := filepath.Base(string(path))
		if strings.HasSuffix(base, ".c") && strings.TrimSuffix(base, ".c") == stem {
			return path, true
		}
	}
	return "", false
}

// nearestMatch returns the candidate with the highest Jaro-Winkler
// similarity to target, if it clears suggestionThreshold.
func nearestMatch(target string, candidates []string) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(target, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) > bestScore {
			bestScore = float64(score)
			best = c
		}
	}
	if bestScore < suggestionThreshold {
		return "", false
	}
	return best, true
}

func (t SymbolTable) names() []string {
	out := make([]string, 0, len(t))
	for sym := range t {
		out = append(out, string(sym))
	}
	sort.Strings(out)
	return out
}

func pathsToStrings(paths []types.SourcePath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}
	return out
}

// SpliceUnreferenced resolves deps -- symbol names called without a
// use/extern declaration, so they never show up in any file's
// symbol_deps -- against table, and adds each resolved file as a
// file_dep of every file in files. An unresolvable name is logged and
// skipped rather than treated as fatal, matching the "might not
// matter" tolerance a missing unreferenced dependency gets elsewhere
// in resolution.
func SpliceUnreferenced(log *slog.Logger, files map[types.SourcePath]*types.AnalysedFile, table SymbolTable, deps []string) {
	if len(deps) == 0 {
		return
	}
	var resolved []types.SourcePath
	for _, d := range deps {
		sym, ok := types.NewSymbol(d)
		if !ok {
			continue
		}
		path, ok := table[sym]
		if !ok {
			log.Info("unreferenced dependency has no definition", "symbol", d)
			continue
		}
		resolved = append(resolved, path)
	}
	for _, af := range files {
		for _, path := range resolved {
			if path == af.Fpath {
				continue
			}
			af.FileDeps.Add(path)
		}
	}
}

// UnresolvedSummary renders unresolved symbols as human-readable warning
// lines, one per symbol, including the suggestion when present.
func UnresolvedSummary(unresolved []UnresolvedSymbol) []string {
	out := make([]string, len(unresolved))
	for i, u := range unresolved {
		if u.HasSuggestion {
			out[i] = fmt.Sprintf("%s: unresolved symbol %q (did you mean %q?)", u.File, u.Symbol, u.Suggestion)
		} else {
			out[i] = fmt.Sprintf("%s: unresolved symbol %q", u.File, u.Symbol)
		}
	}
	return out
}
