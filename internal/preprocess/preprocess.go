// Package preprocess implements the preprocessor driver: invoke an
// external C or Fortran preprocessor per file, relocating the output
// path from under $source to under $build_output.
package preprocess

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/types"
)

// Driver invokes an external preprocessor binary over a set of input
// files, producing relocated outputs under cfg.BuildOutput().
type Driver struct {
	Binary     string
	Flags      types.FlagsConfig
	OutputName string // artefact name to populate: preprocessed_c / preprocessed_fortran
}

// NewDriver constructs a preprocessor driver. binary is a single
// executable name (typically "cpp" for both C and Fortran); options such
// as "-traditional-cpp -P" go in flags, not in binary.
func NewDriver(binary string, flags types.FlagsConfig, outputName string) *Driver {
	return &Driver{Binary: binary, Flags: flags, OutputName: outputName}
}

func (d *Driver) Name() string { return "preprocess " + d.OutputName }

// Run preprocesses every file in inputs, writing OutputName on the store.
func (d *Driver) Run(ctx context.Context, inputs []types.SourcePath, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	outputs := make([]types.SourcePath, len(inputs))
	failures := make(map[types.SourcePath]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers())

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			out, err := d.processOne(gctx, input, cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[input] = err
				return nil // keep going; aggregate below
			}
			outputs[i] = out
			if metrics != nil {
				metrics <- types.Sample{Group: d.Name(), Name: string(input), Value: 1}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(failures) > 0 {
		return fabErrors.NewPreprocessError(failures)
	}

	switch d.OutputName {
	case "preprocessed_c":
		store.PreprocessedC = outputs
	case "preprocessed_fortran":
		store.PreprocessedFortran = outputs
	}
	return nil
}

func (d *Driver) processOne(ctx context.Context, input types.SourcePath, cfg *types.BuildConfig) (types.SourcePath, error) {
	output, err := cfg.RelocateToOutput(input)
	if err != nil {
		return "", fmt.Errorf("relocating %s: %w", input, err)
	}

	if cfg.DebugSkip {
		if _, statErr := os.Stat(string(output)); statErr == nil {
			return output, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(string(output)), 0o755); err != nil {
		return "", err
	}

	args := append([]string{}, d.Flags.FlagsForPath(input, cfg.Source, cfg.BuildOutput())...)
	args = append(args, string(input), "-o", string(output))

	cmd := exec.CommandContext(ctx, d.Binary, args...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %v: %w: %s", d.Binary, args, err, combined)
	}

	return output, nil
}
