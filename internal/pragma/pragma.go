// Package pragma implements the C pragma injector: rewrite .c files so
// that #include "..." and #include <...> regions are bracketed with
// #pragma FAB markers, letting the C analyser skip system-header
// regions without re-parsing.
package pragma

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

const (
	userIncludeStart = "#pragma FAB UsrIncludeStart"
	userIncludeEnd   = "#pragma FAB UsrIncludeEnd"
	sysIncludeStart  = "#pragma FAB SysIncludeStart"
	sysIncludeEnd    = "#pragma FAB SysIncludeEnd"
)

// InjectPragmas reads src line by line and writes dst with every
// #include "..." line bracketed by UsrInclude markers, and every
// #include <...> line bracketed by SysInclude markers.
func InjectPragmas(src io.Reader, dst io.Writer) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	w := bufio.NewWriter(dst)
	defer w.Flush()

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case isInclude(trimmed, '"'):
			fmt.Fprintln(w, userIncludeStart)
			fmt.Fprintln(w, line)
			fmt.Fprintln(w, userIncludeEnd)
		case isInclude(trimmed, '<'):
			fmt.Fprintln(w, sysIncludeStart)
			fmt.Fprintln(w, line)
			fmt.Fprintln(w, sysIncludeEnd)
		default:
			fmt.Fprintln(w, line)
		}
	}
	return scanner.Err()
}

func isInclude(trimmed string, quote byte) bool {
	if !strings.HasPrefix(trimmed, "#include") {
		return false
	}
	rest := strings.TrimSpace(trimmed[len("#include"):])
	if rest == "" {
		return false
	}
	return rest[0] == quote || (quote == '<' && rest[0] == '<')
}

// PragFilePath returns the .prag sibling path for a .c input.
func PragFilePath(src types.SourcePath) types.SourcePath {
	s := string(src)
	if strings.HasSuffix(s, ".c") {
		return types.SourcePath(s[:len(s)-len(".c")] + ".prag")
	}
	return types.SourcePath(s + ".prag")
}

// Step injects pragmas into every .c file in AllSource, writing the
// pragmad_c artefact.
type Step struct{}

func NewStep() *Step { return &Step{} }

func (s *Step) Name() string { return "c pragmas" }

func (s *Step) Run(ctx context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	var cFiles []types.SourcePath
	for _, p := range store.AllSource {
		if strings.HasSuffix(string(p), ".c") {
			cFiles = append(cFiles, p)
		}
	}

	out := make([]types.SourcePath, 0, len(cFiles))
	for _, fpath := range cFiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dst := PragFilePath(fpath)
		if err := injectFile(fpath, dst); err != nil {
			return fmt.Errorf("fab: pragma injection failed for %s: %w", fpath, err)
		}
		out = append(out, dst)
	}

	store.PragmadC = out
	if metrics != nil {
		metrics <- types.Sample{Group: "c pragmas", Name: "files", Value: float64(len(out))}
	}
	return nil
}

func injectFile(src, dst types.SourcePath) error {
	in, err := os.Open(string(src))
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(string(dst))
	if err != nil {
		return err
	}
	defer out.Close()

	return InjectPragmas(in, out)
}
