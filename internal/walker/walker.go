// Package walker implements the file walker & filter step: recursively
// enumerate source files under a root, applying an ordered list of
// include/exclude filter rules where the last matching rule wins.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// Walk descends root and returns every regular file path, in deterministic
// lexicographic order, that is "wanted" after applying rules in order.
// Symbolic links are not followed across filesystem boundaries. An empty
// result is a fatal error.
func Walk(root string, rules []types.FilterRule) ([]types.SourcePath, error) {
	var all []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// A symlink entry: resolve it but refuse to cross out of root.
			target, lerr := filepath.EvalSymlinks(path)
			if lerr != nil {
				slog.Warn("fab: skipping unresolvable symlink", "path", path, "error", lerr)
				return nil
			}
			if !withinRoot(root, target) {
				slog.Debug("fab: not following symlink across filesystem boundary", "path", path, "target", target)
				return nil
			}
			info, ierr := os.Stat(target)
			if ierr != nil || info.IsDir() {
				return nil
			}
		}
		all = append(all, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fab: walking %s: %w", root, err)
	}

	sort.Strings(all)

	var kept []types.SourcePath
	for _, path := range all {
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		wanted := true
		for _, rule := range rules {
			if rule.Matches(rel) {
				wanted = rule.Include
			}
		}
		if wanted {
			kept = append(kept, types.SourcePath(path))
		} else {
			slog.Debug("fab: excluding", "path", path)
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("fab: no source files found under %s", root)
	}

	return kept, nil
}

func withinRoot(root, target string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	return targetAbs == rootAbs || strings.HasPrefix(targetAbs, rootAbs+string(filepath.Separator))
}

// Step wraps Walk as a pipeline Step, writing the all_source artefact.
type Step struct {
	Rules []types.FilterRule
}

func NewStep(rules []types.FilterRule) *Step { return &Step{Rules: rules} }

func (s *Step) Name() string { return "Walk source" }

func (s *Step) Run(_ context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	paths, err := Walk(cfg.Source, s.Rules)
	if err != nil {
		return err
	}
	store.AllSource = paths
	if metrics != nil {
		metrics <- types.Sample{Group: "walk source", Name: "files", Value: float64(len(paths))}
	}
	return nil
}
