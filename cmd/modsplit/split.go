package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modsplit/internal/config"
	"modsplit/internal/crawler"
	"modsplit/internal/extractor"
	"modsplit/internal/git"
	"modsplit/internal/graph"
	"modsplit/internal/model"
	"modsplit/internal/pipeline"
	"modsplit/internal/preview"
	"modsplit/internal/render"
	"modsplit/internal/storage"

	"github.com/spf13/cobra"
)

var (
	outDir          string
	dryRun          bool
	emitDOT         bool
	writeReport     bool
	noHistory       bool
	changedSince    string
	workers         int
	maxLines        int
	maxImplLines    int
	splitImplBlocks bool
)

func init() {
	f := splitCmd.Flags()
	f.StringVarP(&outDir, "out", "o", "", "Output directory (default: a directory named after each file, next to it)")
	f.BoolVar(&dryRun, "dry-run", false, "Show the planned files without writing anything")
	f.BoolVar(&emitDOT, "dot", false, "Write the unit dependency graph as Graphviz DOT")
	f.BoolVar(&writeReport, "report", false, "Write the JSON run report next to the generated files")
	f.BoolVar(&noHistory, "no-history", false, "Do not record the run in the history database (dry runs never are)")
	f.StringVar(&changedSince, "changed", "", "Only split files changed since this git ref")
	f.IntVarP(&workers, "jobs", "j", 4, "Files parsed in parallel when splitting a directory")
	f.IntVar(&maxLines, "max-lines", 0, "Maximum lines per generated file")
	f.IntVar(&maxImplLines, "max-impl-lines", 0, "Maximum lines per impl unit")
	f.BoolVar(&splitImplBlocks, "split-impl-blocks", true, "Allow one impl block to span several units")
}

var splitCmd = &cobra.Command{
	Use:   "split <file-or-dir>",
	Short: "Split a source file, or every oversized file in a directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := args[0]
		logger, cleanup := initLogger()
		defer cleanup()

		cfg, from := loadConfig(configDir(target))
		cfg = cfg.WithOverrides(flagOverrides(cmd))
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid settings: %v", err)
		}
		if from != "" {
			fmt.Printf("⚙️  Using config %s\n", from)
		}

		ext, err := extractor.NewExtractor("rust")
		if err != nil {
			log.Fatalf("Failed to create extractor: %v", err)
		}

		var store *storage.SQLiteStore
		if !noHistory {
			store, err = initStore()
			if err != nil {
				log.Fatalf("Failed to initialize database: %v", err)
			}
			defer store.Close()
		}

		s := &splitter{
			cfg:      cfg,
			logger:   logger,
			pipeline: pipeline.New(cfg, logger),
			store:    store,
			multi:    isDir(target),
			dryRun:   dryRun,
		}
		opts := []crawler.Option{
			crawler.WithMinLines(cfg.Split.MaxLines),
			crawler.WithWorkers(workers),
			crawler.WithExtension(cfg.Naming.FileExtension),
		}

		ctx := context.Background()
		if changedSince != "" {
			if !s.multi {
				log.Fatalf("--changed needs a directory")
			}
			changes, err := git.ChangedFiles(ctx, target, changedSince)
			if err != nil {
				log.Fatalf("Failed to get git changes: %v", err)
			}
			paths := make([]string, 0, len(changes))
			for _, c := range changes {
				paths = append(paths, c.Path)
			}
			fmt.Printf("📝 %d file(s) changed since %s.\n", len(paths), changedSince)
			opts = append(opts, crawler.WithOnly(paths))
		}
		cr := crawler.NewCrawler(ext, logger, opts...)

		start := time.Now()
		fmt.Printf("📂 Scanning %s\n", target)
		if err := cr.ScanProject(ctx, target, s.split); err != nil {
			log.Fatalf("Split failed: %v", err)
		}

		if s.files == 0 {
			fmt.Printf("✅ Nothing to split: no file exceeds %d lines.\n", cfg.Split.MaxLines)
			return
		}
		verb := "Wrote"
		if dryRun {
			verb = "Planned"
		}
		fmt.Printf("🎉 %s %d units from %d file(s) in %v (%d warnings).\n", verb, s.units, s.files, time.Since(start).Round(time.Millisecond), s.warnings)
	},
}

func flagOverrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	if cmd.Flags().Changed("max-lines") {
		o.MaxLines = &maxLines
	}
	if cmd.Flags().Changed("max-impl-lines") {
		o.MaxImplLines = &maxImplLines
	}
	if cmd.Flags().Changed("split-impl-blocks") {
		o.SplitImplBlocks = &splitImplBlocks
	}
	return o
}

// splitter handles one extracted file at a time; the crawler serializes
// calls.
type splitter struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	store    *storage.SQLiteStore
	multi    bool
	dryRun   bool

	files, units, warnings int
}

func (s *splitter) split(prog *model.Program) error {
	ctx := context.Background()
	res, err := s.pipeline.Run(ctx, prog)
	if err != nil {
		return err
	}
	files := render.New(res.Program, res.Arena, res.Visibility, s.cfg).All(res.Units)
	dir := s.outputDir(prog.Path)

	s.files++
	s.units += len(files)
	s.warnings += len(res.Warnings)

	if s.dryRun {
		fmt.Println(preview.Render(preview.Summary{
			Source:   prog.Path,
			OutDir:   dir,
			Files:    files,
			Warnings: res.Warnings,
			MaxLines: s.cfg.Split.MaxLines,
		}))
		return nil
	}

	if err := render.WriteAll(dir, files); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, storage.NewSnapshot(res)); err != nil {
			s.logger.Warn("failed to record run", "run_id", res.RunID, "error", err)
		}
	}
	fmt.Printf("✅ %s -> %s (%d files)\n", prog.Path, dir, len(files))
	for _, w := range res.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}

	if emitDOT || s.cfg.Output.EmitDOT {
		g := graph.FromExport(res.UnitGraph.Graph)
		dot := g.DOT("Units", res.UnitGraph.GraphCycles())
		if err := os.WriteFile(filepath.Join(dir, "units.dot"), []byte(dot), 0o644); err != nil {
			return fmt.Errorf("failed to write DOT: %w", err)
		}
	}
	if writeReport && res.Report != nil {
		if err := res.Report.Save(filepath.Join(dir, "modsplit-report.json")); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// outputDir places each file's units in a directory named after it. With
// --out the directories go under that path when splitting a whole tree.
func (s *splitter) outputDir(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	switch {
	case outDir == "":
		return filepath.Join(filepath.Dir(source), stem)
	case s.multi:
		return filepath.Join(outDir, stem)
	default:
		return outDir
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
