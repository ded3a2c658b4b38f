package analysis

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/metoffice/fab-go/internal/types"
)

// CAnalyser extracts top-level function and variable definitions with
// external linkage into symbol_defs and call-expression references into
// symbol_deps. It
// parses with the C++ grammar as a stand-in for C (no C grammar is
// available), which is a superset syntactically permissive enough for
// the constructs this analyser looks at.
//
// System header regions bracketed by the "#pragma FAB SysIncludeStart/End"
// markers the pragma injector inserts are blanked out (replaced with
// spaces, preserving byte offsets and line numbers) before parsing, so
// nothing from a system header ever contributes a definition or
// dependency.
type CAnalyser struct {
	language *sitter.Language
}

func NewCAnalyser() *CAnalyser {
	return &CAnalyser{language: sitter.NewLanguage(tree_sitter_cpp.Language())}
}

func (a *CAnalyser) CanHandle(path types.SourcePath) bool {
	return hasAnySuffix(strings.ToLower(string(path)), ".c", ".prag")
}

const (
	sysIncludeStart = "#pragma FAB SysIncludeStart"
	sysIncludeEnd   = "#pragma FAB SysIncludeEnd"
)

func (a *CAnalyser) Analyse(path types.SourcePath, hash types.FileHash, content []byte) (Result, error) {
	filtered := blankSystemIncludes(content)

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(a.language); err != nil {
		return Result{}, err
	}
	tree := parser.Parse(filtered, nil)
	if tree == nil {
		return Result{Empty: &types.EmptySourceFile{Fpath: path}}, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return Result{Empty: &types.EmptySourceFile{Fpath: path}}, nil
	}

	symbolDefs := types.SymbolSet{}
	symbolDeps := types.SymbolSet{}

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		collectTopLevelDef(child, filtered, symbolDefs)
		collectTopLevelVarDef(child, filtered, symbolDefs)
	}
	walkForCalls(root, filtered, symbolDeps)

	filteredDeps := types.SymbolSet{}
	for sym := range symbolDeps {
		if symbolDefs.Has(sym) {
			continue
		}
		filteredDeps.Add(sym)
	}

	if len(symbolDefs) == 0 && len(filteredDeps) == 0 {
		return Result{Empty: &types.EmptySourceFile{Fpath: path}}, nil
	}

	af, err := types.NewAnalysedFile(path, hash, types.SymbolSet{}, symbolDefs, filteredDeps)
	if err != nil {
		return Result{}, err
	}
	return Result{Analysed: af}, nil
}

// collectTopLevelDef adds node's function name to defs when node is a
// function_definition without a "static" storage-class specifier.
func collectTopLevelDef(node *sitter.Node, content []byte, defs types.SymbolSet) {
	if node == nil || node.Kind() != "function_definition" {
		return
	}
	if hasStaticSpecifier(node, content) {
		return
	}
	declarator := findChildByType(node, "function_declarator")
	if declarator == nil {
		return
	}
	name := functionDeclaratorName(declarator, content)
	if name == "" {
		return
	}
	if sym, ok := types.NewSymbol(name); ok {
		defs.Add(sym)
	}
}

func hasStaticSpecifier(node *sitter.Node, content []byte) bool {
	return hasStorageClassSpecifier(node, content, "static")
}

func hasExternSpecifier(node *sitter.Node, content []byte) bool {
	return hasStorageClassSpecifier(node, content, "extern")
}

func hasStorageClassSpecifier(node *sitter.Node, content []byte, specifier string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "storage_class_specifier" && nodeText(child, content) == specifier {
			return true
		}
	}
	return false
}

// collectTopLevelVarDef adds the declared name of a top-level variable
// declaration to defs, when it has external linkage: no "static" or
// "extern" specifier, and no function declarator (a function prototype
// is a declaration, not a definition, and is ignored here).
func collectTopLevelVarDef(node *sitter.Node, content []byte, defs types.SymbolSet) {
	if node == nil || node.Kind() != "declaration" {
		return
	}
	if hasStaticSpecifier(node, content) || hasExternSpecifier(node, content) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		addVarDeclaratorName(node.Child(i), content, defs)
	}
}

// addVarDeclaratorName unwraps init_declarator/pointer_declarator/
// array_declarator layers to find the identifier naming the variable.
// A function_declarator child means this is a prototype, not a variable
// definition, and is skipped.
func addVarDeclaratorName(node *sitter.Node, content []byte, defs types.SymbolSet) {
	for node != nil {
		switch node.Kind() {
		case "identifier":
			if sym, ok := types.NewSymbol(nodeText(node, content)); ok {
				defs.Add(sym)
			}
			return
		case "init_declarator", "pointer_declarator", "array_declarator":
			node = findFirstNamedChild(node)
		default:
			return
		}
	}
}

// functionDeclaratorName unwraps pointer_declarator layers (e.g. "char
// *foo(...)") to find the identifier naming the function.
func functionDeclaratorName(node *sitter.Node, content []byte) string {
	for node != nil {
		switch node.Kind() {
		case "identifier", "field_identifier":
			return nodeText(node, content)
		case "function_declarator", "pointer_declarator", "parenthesized_declarator":
			node = findFirstNamedChild(node)
		default:
			return ""
		}
	}
	return ""
}

func findFirstNamedChild(node *sitter.Node) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.IsNamed() {
			return child
		}
	}
	return nil
}

// walkForCalls recursively collects every call_expression's callee
// identifier into deps.
func walkForCalls(node *sitter.Node, content []byte, deps types.SymbolSet) {
	if node == nil {
		return
	}
	if node.Kind() == "call_expression" {
		if callee := node.ChildByFieldName("function"); callee != nil && callee.Kind() == "identifier" {
			if sym, ok := types.NewSymbol(nodeText(callee, content)); ok {
				deps.Add(sym)
			}
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkForCalls(node.Child(i), content, deps)
	}
}

func findChildByType(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

// blankSystemIncludes returns a copy of content with every byte between a
// SysIncludeStart and its matching SysIncludeEnd marker (inclusive)
// replaced by spaces, except newlines, so the parser's line/column
// positions don't shift and nothing in between is ever visited.
func blankSystemIncludes(content []byte) []byte {
	out := make([]byte, len(content))
	copy(out, content)

	text := string(content)
	for {
		start := strings.Index(text, sysIncludeStart)
		if start == -1 {
			break
		}
		end := strings.Index(text[start:], sysIncludeEnd)
		if end == -1 {
			blankRange(out, start, len(content))
			break
		}
		end = start + end + len(sysIncludeEnd)
		blankRange(out, start, end)
		text = string(out) // re-scan from blanked state to handle overlaps safely
	}
	return out
}

func blankRange(buf []byte, start, end int) {
	for i := start; i < end && i < len(buf); i++ {
		if buf[i] != '\n' {
			buf[i] = ' '
		}
	}
}
