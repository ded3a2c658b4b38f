package analysis

import (
	"regexp"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// FortranAnalyser performs lexical/parse-level extraction of Fortran
// module/program/subroutine/function definitions, use/call/function-
// reference dependencies, and "DEPENDS ON:" comment directives. It is a
// line-oriented regex analyser: no Fortran AST library is available.
type FortranAnalyser struct{}

func NewFortranAnalyser() *FortranAnalyser { return &FortranAnalyser{} }

func (a *FortranAnalyser) CanHandle(path types.SourcePath) bool {
	return hasAnySuffix(strings.ToLower(string(path)), ".f90", ".f", ".f77", ".inc")
}

var (
	reModule     = regexp.MustCompile(`(?i)^\s*module\s+(\w+)\s*$`)
	reProgram    = regexp.MustCompile(`(?i)^\s*program\s+(\w+)`)
	reSubroutine = regexp.MustCompile(`(?i)^\s*(?:recursive\s+)?subroutine\s+(\w+)`)
	// function definitions may be preceded by a type spec, e.g. "integer function foo(...)"
	reFunction      = regexp.MustCompile(`(?i)^\s*(?:[\w*()]+\s+)*?function\s+(\w+)`)
	reUse           = regexp.MustCompile(`(?i)^\s*use\s*(?:,\s*intrinsic\s*)?(?:::)?\s*(\w+)`)
	reCall          = regexp.MustCompile(`(?i)\bcall\s+(\w+)`)
	reFuncRef       = regexp.MustCompile(`(?i)\b([a-zA-Z_]\w*)\s*\(`)
	reDependsOn     = regexp.MustCompile(`(?i)!\s*depends\s+on\s*:\s*(.+)$`)
	reEndModule     = regexp.MustCompile(`(?i)^\s*end\s*module\b`)
	reEndSubroutine = regexp.MustCompile(`(?i)^\s*end\s*subroutine\b`)
	reEndFunction   = regexp.MustCompile(`(?i)^\s*end\s*function\b`)
	reEndProgram    = regexp.MustCompile(`(?i)^\s*end\s*program\b`)
)

// fortranKeywords are reserved words that can precede "(" but are never
// symbol references (control constructs, type specs, declaration
// attributes).
var fortranKeywords = types.NewSymbolSet(
	"if", "do", "select", "case", "where", "forall", "write", "read",
	"print", "format", "open", "close", "allocate", "deallocate",
	"integer", "real", "logical", "character", "complex", "type",
	"class", "dimension", "intent", "parameter", "then", "else",
	"elseif", "end", "return", "stop", "implicit", "use", "module",
	"subroutine", "function", "program", "interface", "contains",
	"result", "optional", "pointer", "target", "allocatable", "save",
	"public", "private", "kind",
)

func (a *FortranAnalyser) Analyse(path types.SourcePath, hash types.FileHash, content []byte) (Result, error) {
	lines := joinContinuations(strings.Split(string(content), "\n"))

	moduleDefs := types.SymbolSet{}
	symbolDefs := types.SymbolSet{}
	symbolDeps := types.SymbolSet{}
	commentDeps := types.StringSet{}
	localNames := types.SymbolSet{}

	for _, raw := range lines {
		if dep := reDependsOn.FindStringSubmatch(raw); dep != nil {
			for _, tok := range strings.Split(dep[1], ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				commentDeps.Add(tok)
			}
			continue
		}

		code := stripInlineComment(raw)
		for _, segment := range strings.Split(code, ";") {
			analyseFortranStatement(segment, moduleDefs, symbolDefs, symbolDeps, localNames)
		}
	}

	// symbol_deps excludes names defined locally and Fortran intrinsics.
	filteredDeps := types.SymbolSet{}
	for sym := range symbolDeps {
		if localNames.Has(sym) || isIntrinsicProcedure(sym) {
			continue
		}
		filteredDeps.Add(sym)
	}

	if len(symbolDefs) == 0 && len(filteredDeps) == 0 && len(commentDeps) == 0 {
		return Result{Empty: &types.EmptySourceFile{Fpath: path}}, nil
	}

	af, err := types.NewAnalysedFile(path, hash, moduleDefs, symbolDefs, filteredDeps)
	if err != nil {
		return Result{}, err
	}
	af.MOCommentedFileDeps = commentDeps

	return Result{Analysed: af}, nil
}

// analyseFortranStatement matches a single Fortran statement (already
// split on ';' and stripped of trailing comment) against the definition/
// use/call/reference patterns, updating the given sets in place.
func analyseFortranStatement(line string, moduleDefs, symbolDefs, symbolDeps, localNames types.SymbolSet) {
	if reEndModule.MatchString(line) || reEndSubroutine.MatchString(line) ||
		reEndFunction.MatchString(line) || reEndProgram.MatchString(line) {
		return
	}

	if m := reModule.FindStringSubmatch(line); m != nil {
		if sym, ok := types.NewSymbol(m[1]); ok {
			moduleDefs.Add(sym)
			symbolDefs.Add(sym)
			localNames.Add(sym)
		}
		return
	}
	if m := reProgram.FindStringSubmatch(line); m != nil {
		if sym, ok := types.NewSymbol(m[1]); ok {
			symbolDefs.Add(sym)
			localNames.Add(sym)
		}
		return
	}
	if m := reSubroutine.FindStringSubmatch(line); m != nil {
		if sym, ok := types.NewSymbol(m[1]); ok {
			symbolDefs.Add(sym)
			localNames.Add(sym)
		}
		return
	}
	if m := reFunction.FindStringSubmatch(line); m != nil {
		if sym, ok := types.NewSymbol(m[1]); ok {
			symbolDefs.Add(sym)
			localNames.Add(sym)
		}
		return
	}
	if m := reUse.FindStringSubmatch(line); m != nil {
		if sym, ok := types.NewSymbol(m[1]); ok && !isIntrinsicModule(sym) {
			symbolDeps.Add(sym)
		}
		return
	}

	for _, m := range reCall.FindAllStringSubmatch(line, -1) {
		if sym, ok := types.NewSymbol(m[1]); ok {
			symbolDeps.Add(sym)
		}
	}
	for _, m := range reFuncRef.FindAllStringSubmatch(line, -1) {
		sym, ok := types.NewSymbol(m[1])
		if !ok || fortranKeywords.Has(sym) {
			continue
		}
		symbolDeps.Add(sym)
	}
}

// joinContinuations merges free-form Fortran continuation lines (a line
// ending in "&") into their successor, so a definition or reference split
// across lines is still matched by the single-line regexes above.
func joinContinuations(lines []string) []string {
	var out []string
	var pending string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.HasSuffix(trimmed, "&") {
			pending += strings.TrimSuffix(trimmed, "&") + " "
			continue
		}
		out = append(out, pending+line)
		pending = ""
	}
	if pending != "" {
		out = append(out, pending)
	}
	return out
}

// stripInlineComment removes a trailing "! ..." comment. Full-line
// "! DEPENDS ON:" comments are matched separately against the raw line
// before this is applied.
func stripInlineComment(line string) string {
	inString := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString != 0:
			if c == inString {
				inString = 0
			}
		case c == '\'' || c == '"':
			inString = c
		case c == '!':
			return line[:i]
		}
	}
	return line
}
