package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pkg.jsn.cam/keydiff/internal/chunk"
	"pkg.jsn.cam/keydiff/internal/compare"
	"pkg.jsn.cam/keydiff/internal/config"
	"pkg.jsn.cam/keydiff/internal/manifest"
	"pkg.jsn.cam/keydiff/internal/merge"
	"pkg.jsn.cam/keydiff/internal/shard"
	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

var (
	runConfigDir string
	runParallel  int
)

// runCmd executes the whole pipeline locally: shard both inputs, compare
// every shard pair in parallel, and merge the partial results.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Shard, compare, and merge in one local run",
	Long: `Run the full comparison locally, driven by keydiff.yaml / .env /
KEYDIFF_* environment variables in the config directory.

Both inputs are sharded by key hash, each shard pair is compared on its own
goroutine, and the partial results are merged into final_comparison.csv and
final_missing_instances.txt. Run state is tracked in the manifest database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigDir)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		t0 := time.Now()
		ctx := cmd.Context()

		cols1, err := cfg.File1.Columns()
		if err != nil {
			return err
		}
		cols2, err := cfg.File2.Columns()
		if err != nil {
			return err
		}

		lines1, err := chunk.CountLines(cfg.File1.Path)
		if err != nil {
			return err
		}
		lines2, err := chunk.CountLines(cfg.File2.Path)
		if err != nil {
			return err
		}
		log.Info("input statistics",
			zap.String("file1_lines", humanize.Comma(lines1)),
			zap.String("file2_lines", humanize.Comma(lines2)))

		if err := os.MkdirAll(cfg.ResultsDir, 0755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}

		store, err := manifest.Open(cfg.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.CreateRun(manifest.Run{
			File1:  cfg.File1.Path,
			File2:  cfg.File2.Path,
			Mode:   keydiff.Mode(cfg.Mode),
			Shards: cfg.Shards,
			Lines1: lines1,
			Lines2: lines2,
		})
		if err != nil {
			return err
		}
		log.Info("created run", zap.String("run_id", run.ID), zap.Int("shards", cfg.Shards))

		progress := logFormat == "console"
		if _, err := shard.File(cfg.File1.Path, cols1.Key, cfg.Shards, cfg.ShardDir, log, shard.Options{Progress: progress}); err != nil {
			return err
		}
		if _, err := shard.File(cfg.File2.Path, cols2.Key, cfg.Shards, cfg.ShardDir, log, shard.Options{Progress: progress}); err != nil {
			return err
		}

		valName1 := compare.ColumnName(cfg.File1.Path, cfg.File1.ValueCol)
		valName2 := compare.ColumnName(cfg.File2.Path, cfg.File2.ValueCol)

		workers := cfg.Workers
		if workers < 1 {
			workers = runtime.NumCPU()
		}
		parallel := runParallel
		if parallel < 1 {
			parallel = runtime.NumCPU()
		}

		prefix := filepath.Join(cfg.ResultsDir, "run")

		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(parallel)
		for i := 0; i < cfg.Shards; i++ {
			i := i
			group.Go(func() error {
				req := compare.Request{
					File1: compare.FileSpec{
						Path:      shard.Path(cfg.ShardDir, cfg.File1.Path, i),
						Cols:      cols1,
						ValueName: valName1,
					},
					File2: compare.FileSpec{
						Path:      shard.Path(cfg.ShardDir, cfg.File2.Path, i),
						Cols:      cols2,
						ValueName: valName2,
					},
					Mode:         keydiff.Mode(cfg.Mode),
					Workers:      workers,
					OutputPrefix: merge.Prefix(prefix, i),
				}

				summary, err := compare.Run(gctx, req, log.With(zap.Int("shard", i)))
				if err != nil {
					return fmt.Errorf("shard %d: %w", i, err)
				}
				return store.MarkShardDone(run.ID, i, summary)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}

		finalCSV := filepath.Join(cfg.ResultsDir, "final_comparison.csv")
		finalMissing := filepath.Join(cfg.ResultsDir, "final_missing_instances.txt")
		if _, err := merge.CSV(prefix, cfg.Shards, finalCSV, cfg.AllowPartial); err != nil {
			return err
		}
		if _, err := merge.Missing(prefix, cfg.Shards, finalMissing, cfg.AllowPartial); err != nil {
			return err
		}

		totals, err := store.Totals(run.ID)
		if err != nil {
			return err
		}

		log.Info("run complete",
			zap.String("run_id", run.ID),
			zap.Int("total_missing_in_file1", totals.MissingInFile1),
			zap.Int("total_missing_in_file2", totals.MissingInFile2),
			zap.Int("total_comparison_lines", totals.ComparisonLines),
			zap.String("final_csv", finalCSV),
			zap.String("final_missing", finalMissing),
			zap.Duration("elapsed", time.Since(t0)))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigDir, "config", ".", "directory holding keydiff.yaml / .env")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "concurrent shard comparisons (0 = all CPUs)")

	rootCmd.AddCommand(runCmd)
}
