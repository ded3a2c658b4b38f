// Command fab drives the incremental Fortran/C build engine: walk source,
// preprocess, analyse, resolve dependencies, extract the subtree needed
// for a target, compile in dependency order and link.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/metoffice/fab-go/internal/analysis"
	"github.com/metoffice/fab-go/internal/archive"
	"github.com/metoffice/fab-go/internal/cache"
	"github.com/metoffice/fab-go/internal/compile"
	"github.com/metoffice/fab-go/internal/config"
	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/manifest"
	"github.com/metoffice/fab-go/internal/pipeline"
	"github.com/metoffice/fab-go/internal/pragma"
	"github.com/metoffice/fab-go/internal/preprocess"
	"github.com/metoffice/fab-go/internal/resolve"
	"github.com/metoffice/fab-go/internal/schedule"
	"github.com/metoffice/fab-go/internal/subtree"
	"github.com/metoffice/fab-go/internal/types"
	"github.com/metoffice/fab-go/internal/walker"
)

func main() {
	app := &cli.App{
		Name:                   "fab",
		Usage:                  "incremental build orchestrator for Fortran/C scientific software",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "workspace root", Value: "fab-workspace"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "source tree root", Required: true},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "project label", Value: "build"},
			&cli.StringFlag{Name: "root-symbol", Usage: "entry-point symbol for the build tree"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "parallel worker count", Value: config.DefaultWorkers()},
			&cli.BoolFlag{Name: "debug-skip", Usage: "skip external tool invocations whose output already exists"},
		},
		Commands: []*cli.Command{
			buildCommand(),
			showTreeCommand(),
			validateCacheCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("fab failed", "error", err)
		os.Exit(1)
	}
}

func baseConfig(c *cli.Context) *types.BuildConfig {
	tf, err := config.Load(c.String("source"))
	if err != nil {
		slog.Warn("ignoring .fab.kdl", "error", err)
		tf = &config.ToolFlags{}
	}
	return config.New(c.String("label"), c.String("workspace"),
		config.WithMultiprocessing(c.Int("workers")),
		config.WithRootSymbol(c.String("root-symbol")),
		config.WithFlags(tf),
		func(cfg *types.BuildConfig) { cfg.Source = c.String("source") },
		func(cfg *types.BuildConfig) {
			if c.Bool("debug-skip") {
				cfg.DebugSkip = true
			}
		},
	)
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "walk, analyse, resolve, compile and link the named target",
		Action: func(c *cli.Context) error {
			cfg := baseConfig(c)
			log := slog.Default()
			m := manifest.New(cfg.Label)

			cfg.Steps = []types.Step{
				&walker.Step{},
				&pragma.Step{},
				preprocess.NewCStep("cpp", cfg.PreprocessFlags),
				preprocess.NewFortranStep("cpp", cfg.PreprocessFlags),
			}

			store, _, err := pipeline.Run(context.Background(), cfg, log)
			for _, step := range cfg.Steps {
				m.RecordStep(step.Name())
			}
			finishErr := m.Finish(cfg.Root, err)
			if err != nil {
				return err
			}
			if finishErr != nil {
				log.Warn("could not write run manifest", "error", finishErr)
			}

			if err := analyseAndResolve(store, cfg, log); err != nil {
				return err
			}

			if cfg.RootSymbol == "" {
				fmt.Printf("analysed %d files\n", len(store.AnalysedFiles))
				return nil
			}

			if len(store.MissingDeps) > 0 {
				return fabErrors.NewBuildTreeError(store.MissingDeps)
			}

			driver := compile.NewDriver(config.FortranCompiler("gfortran"), config.CCompiler("gcc"), cfg.CompileFlags, cfg)
			units, err := schedule.Run(context.Background(), store.BuildTreeResult, driver, cfg.Workers())
			if err != nil {
				return err
			}
			for _, u := range units {
				if isFortran(u.Analysed.Fpath) {
					store.CompiledFortran = append(store.CompiledFortran, u)
				} else {
					store.CompiledC = append(store.CompiledC, u)
				}
			}

			var objects []types.SourcePath
			for _, u := range store.AllCompiled() {
				objects = append(objects, u.ObjectPath)
			}
			linker := archive.NewExecutableLinker(config.FortranCompiler("gfortran"), cfg.LinkFlags.Common)
			output := types.SourcePath(fmt.Sprintf("%s/%s", cfg.BuildOutput(), cfg.Label))
			if err := linker.Link(context.Background(), objects, nil, output, cfg.DebugSkip); err != nil {
				return err
			}
			store.LinkedOutput = output

			fmt.Printf("analysed %d files, compiled %d, linked %s\n", len(store.AnalysedFiles), len(objects), output)
			return nil
		},
	}
}

func isFortran(path types.SourcePath) bool {
	return !hasAnySuffix(strings.ToLower(string(path)), ".c", ".prag")
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// analyseAndResolve runs analysis, dependency resolution and subtree
// extraction against the artefacts already produced by the pipeline
// steps, loading/saving the analysis cache along the way.
func analyseAndResolve(store *types.ArtefactStore, cfg *types.BuildConfig, log *slog.Logger) error {
	prior, err := cache.Load(cfg.AnalysisCachePath())
	if err != nil {
		return err
	}

	registry := analysis.NewRegistry()
	store.AnalysedFiles = map[types.SourcePath]*types.AnalysedFile{}

	w, err := cache.Open(cfg.AnalysisCachePath())
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range store.AllSource {
		if slices.Contains(cfg.SkipFiles, string(path)) {
			continue
		}
		an, ok := registry.For(path)
		if !ok {
			continue
		}
		content, hash, err := analysis.ReadAndHash(path)
		if err != nil {
			return err
		}
		if prev, ok := prior[path]; ok && prev.FileHash == hash {
			store.AnalysedFiles[path] = prev
			if err := w.WriteRow(prev); err != nil {
				return err
			}
			continue
		}
		result, err := an.Analyse(path, hash, content)
		if err != nil {
			return err
		}
		if result.Analysed == nil {
			continue
		}
		store.AnalysedFiles[path] = result.Analysed
		if err := w.WriteRow(result.Analysed); err != nil {
			return err
		}
	}

	table := resolve.BuildSymbolTable(store.AnalysedFiles)
	resolve.LogAmbiguities(log, table.Ambiguous)
	unresolved := resolve.ResolveFileDeps(store.AnalysedFiles, table.Table)
	for _, line := range resolve.UnresolvedSummary(unresolved) {
		log.Info(line)
	}
	resolve.SpliceUnreferenced(log, store.AnalysedFiles, table.Table, cfg.UnreferencedDeps)

	if cfg.RootSymbol != "" {
		root, ok := table.Table[mustSymbol(cfg.RootSymbol)]
		if !ok {
			return fmt.Errorf("fab: root symbol %q has no definition", cfg.RootSymbol)
		}
		result, err := subtree.Extract(root, store.AnalysedFiles)
		if err != nil {
			return err
		}
		store.BuildTreeResult = result.Tree
		store.MissingDeps = result.Missing
	}

	return nil
}

func mustSymbol(raw string) types.Symbol {
	sym, _ := types.NewSymbol(raw)
	return sym
}

func showTreeCommand() *cli.Command {
	return &cli.Command{
		Name:  "show-tree",
		Usage: "print the build tree for the configured root symbol",
		Action: func(c *cli.Context) error {
			cfg := baseConfig(c)
			log := slog.Default()

			cfg.Steps = []types.Step{&walker.Step{}}
			store, _, err := pipeline.Run(context.Background(), cfg, log)
			if err != nil {
				return err
			}
			if err := analyseAndResolve(store, cfg, log); err != nil {
				return err
			}
			for _, path := range subtree.Paths(store.BuildTreeResult) {
				fmt.Println(path)
			}
			return nil
		},
	}
}

func validateCacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate-cache",
		Usage: "load the analysis cache and report whether it parses",
		Action: func(c *cli.Context) error {
			cfg := baseConfig(c)
			entries, err := cache.Load(cfg.AnalysisCachePath())
			if err != nil {
				return err
			}
			fmt.Printf("cache at %s is valid: %d entries\n", cfg.AnalysisCachePath(), len(entries))
			return nil
		},
	}
}
