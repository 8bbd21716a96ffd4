package main

import (
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/keydiff/internal/compare"
	"pkg.jsn.cam/keydiff/internal/config"
	"pkg.jsn.cam/keydiff/internal/manifest"
	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

var (
	cmpFile1        string
	cmpInstCols1    string
	cmpValCol1      int
	cmpValName1     string
	cmpFile2        string
	cmpInstCols2    string
	cmpValCol2      int
	cmpValName2     string
	cmpMode         string
	cmpWorkers      int
	cmpOutputPrefix string
	cmpManifest     string
	cmpRunID        string
	cmpShardIndex   int
)

// compareCmd compares one shard pair and writes its partial outputs. This is
// the worker command a batch scheduler invokes once per shard index.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare one shard pair and write partial results",
	Long: `Compare a shard of file1 against the correspondingly-indexed shard of
file2 and write <prefix>_comparison.csv and <prefix>_missing_instances.txt.

With --manifest and --run, the shard's summary counters are also recorded
in the run manifest so the merge step can verify completeness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		keyCols1, err := config.ParseCols(cmpInstCols1)
		if err != nil {
			return err
		}
		keyCols2, err := config.ParseCols(cmpInstCols2)
		if err != nil {
			return err
		}

		workers := cmpWorkers
		if workers < 1 {
			workers = runtime.NumCPU()
		}

		req := compare.Request{
			File1: compare.FileSpec{
				Path:      cmpFile1,
				Cols:      keydiff.Columns{Key: keyCols1, Value: cmpValCol1},
				ValueName: cmpValName1,
			},
			File2: compare.FileSpec{
				Path:      cmpFile2,
				Cols:      keydiff.Columns{Key: keyCols2, Value: cmpValCol2},
				ValueName: cmpValName2,
			},
			Mode:         keydiff.Mode(cmpMode),
			Workers:      workers,
			OutputPrefix: cmpOutputPrefix,
		}

		summary, err := compare.Run(cmd.Context(), req, log)
		if err != nil {
			return err
		}

		if cmpManifest != "" && cmpRunID != "" {
			store, err := manifest.Open(cmpManifest)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MarkShardDone(cmpRunID, cmpShardIndex, summary); err != nil {
				return err
			}
		}

		log.Info("shard comparison complete",
			zap.String("output_prefix", cmpOutputPrefix),
			zap.Int("missing_in_file1", summary.MissingInFile1),
			zap.Int("missing_in_file2", summary.MissingInFile2),
			zap.Int("comparison_lines", summary.ComparisonLines))
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&cmpFile1, "file1", "", "path to the first shard file")
	compareCmd.Flags().StringVar(&cmpInstCols1, "instcol1", "", "comma-separated key column indices for file1")
	compareCmd.Flags().IntVar(&cmpValCol1, "valcol1", 1, "0-based value column index for file1")
	compareCmd.Flags().StringVar(&cmpValName1, "valname1", "", "display name of file1's value column")
	compareCmd.Flags().StringVar(&cmpFile2, "file2", "", "path to the second shard file")
	compareCmd.Flags().StringVar(&cmpInstCols2, "instcol2", "", "comma-separated key column indices for file2")
	compareCmd.Flags().IntVar(&cmpValCol2, "valcol2", 1, "0-based value column index for file2")
	compareCmd.Flags().StringVar(&cmpValName2, "valname2", "", "display name of file2's value column")
	compareCmd.Flags().StringVar(&cmpMode, "mode", "numeric", "comparison mode (numeric, string)")
	compareCmd.Flags().IntVar(&cmpWorkers, "workers", 0, "intra-shard parse workers (0 = all CPUs)")
	compareCmd.Flags().StringVar(&cmpOutputPrefix, "output-prefix", "", "prefix for the partial result files")
	compareCmd.Flags().StringVar(&cmpManifest, "manifest", "", "manifest db path (optional)")
	compareCmd.Flags().StringVar(&cmpRunID, "run", "", "run ID in the manifest (optional)")
	compareCmd.Flags().IntVar(&cmpShardIndex, "shard", 0, "shard index for manifest bookkeeping")
	_ = compareCmd.MarkFlagRequired("file1")
	_ = compareCmd.MarkFlagRequired("instcol1")
	_ = compareCmd.MarkFlagRequired("file2")
	_ = compareCmd.MarkFlagRequired("instcol2")
	_ = compareCmd.MarkFlagRequired("output-prefix")

	rootCmd.AddCommand(compareCmd)
}
