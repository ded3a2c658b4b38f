// Package pipeline drives a BuildConfig's steps to completion over a
// shared ArtefactStore, logging each step's wall-clock time.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/metoffice/fab-go/internal/metrics"
	"github.com/metoffice/fab-go/internal/types"
)

// Run executes cfg.Steps in order against a fresh ArtefactStore, logging
// each step's duration at log, and returns the final store along with the
// metrics snapshot collected over the run.
func Run(ctx context.Context, cfg *types.BuildConfig, log *slog.Logger) (*types.ArtefactStore, map[string]map[string]float64, error) {
	if err := os.MkdirAll(cfg.BuildOutput(), 0o755); err != nil {
		return nil, nil, err
	}

	store := types.NewArtefactStore()
	sampleCh := make(chan types.Sample, 64)
	collector := metrics.NewCollector(sampleCh)

	log.Info("starting build", "label", cfg.Label, "steps", len(cfg.Steps))

	for _, step := range cfg.Steps {
		start := time.Now()
		log.Info("step starting", "step", step.Name())
		if err := step.Run(ctx, store, cfg, sampleCh); err != nil {
			close(sampleCh)
			collector.Wait()
			return store, nil, err
		}
		log.Info("step finished", "step", step.Name(), "elapsed", time.Since(start))
	}

	close(sampleCh)
	snapshot := collector.Wait()

	return store, snapshot, nil
}
