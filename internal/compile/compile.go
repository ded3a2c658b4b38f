// Package compile implements the per-file compile driver: invoke an
// external Fortran or C compiler on one analysed source file, producing
// an object file under the build output tree. It plugs into the compile
// scheduler as a schedule.Compiler.
package compile

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// Driver compiles a single analysed file by shelling out to the
// Fortran or C compiler, chosen by the source file's extension, with
// flags composed the same way the preprocessor driver composes them.
type Driver struct {
	FortranBinary string
	CBinary       string
	Flags         types.FlagsConfig
	Cfg           *types.BuildConfig
}

// NewDriver constructs a compile driver bound to cfg's compile flags
// and build output layout.
func NewDriver(fortranBinary, cBinary string, flags types.FlagsConfig, cfg *types.BuildConfig) *Driver {
	return &Driver{FortranBinary: fortranBinary, CBinary: cBinary, Flags: flags, Cfg: cfg}
}

// Compile implements schedule.Compiler.
func (d *Driver) Compile(ctx context.Context, af *types.AnalysedFile) (types.CompileUnit, error) {
	binary := d.binaryFor(af.Fpath)
	if binary == "" {
		return types.CompileUnit{}, fmt.Errorf("fab: no compiler configured for %s", af.Fpath)
	}

	obj, err := d.Cfg.RelocateToOutput(af.Fpath)
	if err != nil {
		return types.CompileUnit{}, fmt.Errorf("relocating %s: %w", af.Fpath, err)
	}
	object := obj + ".o"

	if d.Cfg.DebugSkip {
		if _, statErr := os.Stat(string(object)); statErr == nil {
			return types.CompileUnit{Analysed: af, ObjectPath: object}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(string(object)), 0o755); err != nil {
		return types.CompileUnit{}, err
	}

	args := append([]string{}, d.Flags.FlagsForPath(af.Fpath, d.Cfg.Source, d.Cfg.BuildOutput())...)
	args = append(args, string(af.Fpath), "-o", string(object))

	cmd := exec.CommandContext(ctx, binary, args...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		return types.CompileUnit{}, fmt.Errorf("%s %v: %w: %s", binary, args, err, combined)
	}

	return types.CompileUnit{Analysed: af, ObjectPath: object}, nil
}

func (d *Driver) binaryFor(path types.SourcePath) string {
	lower := strings.ToLower(string(path))
	switch {
	case hasAnySuffix(lower, ".f90", ".f", ".f77", ".inc"):
		return d.FortranBinary
	case hasAnySuffix(lower, ".c", ".prag"):
		return d.CBinary
	default:
		return ""
	}
}

func hasAnySuffix(path string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
