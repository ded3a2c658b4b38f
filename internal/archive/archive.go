// Package archive implements the archiver and linker: shelling out to
// the platform's archiver (ar) or linker (ld/gcc/mpifort) to turn
// compiled object files into a static archive, executable, or shared
// object.
package archive

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/metoffice/fab-go/internal/types"
)

// Archiver invokes the archive tool (ar) to bundle object files into a
// static library.
type Archiver struct {
	Binary string
	Flags  []string
}

func NewArchiver(binary string, flags []string) *Archiver {
	if binary == "" {
		binary = "ar"
	}
	return &Archiver{Binary: binary, Flags: flags}
}

// Archive builds outputPath from objects. When debugSkip is set and
// outputPath already exists, the archiver invocation is skipped entirely,
// mirroring the preprocessor driver's debug-skip bypass.
func (a *Archiver) Archive(ctx context.Context, objects []types.SourcePath, outputPath types.SourcePath, debugSkip bool) error {
	if debugSkip {
		if _, err := os.Stat(string(outputPath)); err == nil {
			return nil
		}
	}

	args := append([]string{}, a.Flags...)
	if len(args) == 0 {
		args = []string{"rcs"}
	}
	args = append(args, string(outputPath))
	for _, obj := range objects {
		args = append(args, string(obj))
	}

	cmd := exec.CommandContext(ctx, a.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("fab: archiving %s: %w\n%s", outputPath, err, output)
	}
	return nil
}

// LinkKind selects between a standalone executable and a shared object.
type LinkKind int

const (
	Executable LinkKind = iota
	SharedObject
)

// Linker invokes the platform linker (ld, gcc, or an MPI compiler wrapper
// such as mpifort) to produce an executable or shared object from object
// files and archives.
type Linker struct {
	Binary string
	Kind   LinkKind
	Flags  []string
}

// NewExecutableLinker builds a Linker that produces a standalone
// executable.
func NewExecutableLinker(binary string, flags []string) *Linker {
	return &Linker{Binary: binary, Kind: Executable, Flags: flags}
}

// NewSharedObjectLinker builds a Linker that produces a shared object,
// enforcing "-fPIC -shared" ahead of any caller-supplied flags.
func NewSharedObjectLinker(binary string, flags []string) *Linker {
	enforced := append([]string{"-fPIC", "-shared"}, flags...)
	return &Linker{Binary: binary, Kind: SharedObject, Flags: enforced}
}

// Link produces outputPath by linking objects and archives together.
func (l *Linker) Link(ctx context.Context, objects, archives []types.SourcePath, outputPath types.SourcePath, debugSkip bool) error {
	if debugSkip {
		if _, err := os.Stat(string(outputPath)); err == nil {
			return nil
		}
	}

	args := append([]string{}, l.Flags...)
	for _, obj := range objects {
		args = append(args, string(obj))
	}
	for _, ar := range archives {
		args = append(args, string(ar))
	}
	args = append(args, "-o", string(outputPath))

	cmd := exec.CommandContext(ctx, l.Binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("fab: linking %s: %w\n%s", outputPath, err, output)
	}
	return nil
}
