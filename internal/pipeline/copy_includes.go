package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// CopyIncludesStep copies every ".inc" file in all_source to the build
// output root, flattened (not mirroring the source tree), so
// preprocessing can find them by bare filename. A name clash between
// two .inc files with the same basename from different source
// subdirectories is fatal, since only one can occupy the flattened slot.
type CopyIncludesStep struct{}

func (CopyIncludesStep) Name() string { return "copy_includes" }

func (CopyIncludesStep) Run(ctx context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	outputRoot := cfg.BuildOutput()
	copied := map[string]types.SourcePath{}

	for _, src := range store.AllSource {
		if !strings.HasSuffix(strings.ToLower(string(src)), ".inc") {
			continue
		}
		name := filepath.Base(string(src))
		if prior, ok := copied[name]; ok {
			return fmt.Errorf("fab: name clash for include file %q: %s and %s both map to the same output path", name, prior, src)
		}
		copied[name] = src

		if err := copyFile(string(src), filepath.Join(outputRoot, name)); err != nil {
			return fmt.Errorf("fab: copying include file %s: %w", src, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
