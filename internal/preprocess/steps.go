package preprocess

import (
	"context"
	"strings"

	"github.com/metoffice/fab-go/internal/types"
)

// CStep preprocesses the pragmad_c artefact into preprocessed_c.
type CStep struct{ Driver *Driver }

func NewCStep(binary string, flags types.FlagsConfig) *CStep {
	return &CStep{Driver: NewDriver(binary, flags, "preprocessed_c")}
}

func (s *CStep) Name() string { return s.Driver.Name() }

func (s *CStep) Run(ctx context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	return s.Driver.Run(ctx, store.PragmadC, store, cfg, metrics)
}

// FortranStep preprocesses every .f90 file in all_source into
// preprocessed_fortran.
type FortranStep struct{ Driver *Driver }

func NewFortranStep(binary string, flags types.FlagsConfig) *FortranStep {
	return &FortranStep{Driver: NewDriver(binary, flags, "preprocessed_fortran")}
}

func (s *FortranStep) Name() string { return s.Driver.Name() }

func (s *FortranStep) Run(ctx context.Context, store *types.ArtefactStore, cfg *types.BuildConfig, metrics chan<- types.Sample) error {
	var inputs []types.SourcePath
	for _, p := range store.AllSource {
		if strings.HasSuffix(string(p), ".f90") {
			inputs = append(inputs, p)
		}
	}
	return s.Driver.Run(ctx, inputs, store, cfg, metrics)
}
