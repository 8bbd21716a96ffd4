package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/keydiff/internal/manifest"
	"pkg.jsn.cam/keydiff/internal/merge"
)

var (
	mergePrefix       string
	mergeShards       int
	mergeFinalCSV     string
	mergeFinalMissing string
	mergeAllowPartial bool
	mergeManifest     string
	mergeRunID        string
)

// mergeCmd recombines the per-shard partial results into the final report.
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-shard partial results into the final report",
	Long: `Merge the K partial comparison CSVs and missing-instance reports into
final_comparison.csv and final_missing_instances.txt.

All partial CSVs must share an identical header; a mismatch aborts the
merge. A missing partial aborts too, unless --allow-partial is set, in
which case the shards that are present are merged and the absent ones
reported. Re-running the merge on the same partials produces byte-identical
final files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		csvMerged, err := merge.CSV(mergePrefix, mergeShards, mergeFinalCSV, mergeAllowPartial)
		if err != nil {
			return err
		}
		log.Info("merged comparison CSVs",
			zap.Int("shards", csvMerged),
			zap.String("out", mergeFinalCSV))

		missingMerged, err := merge.Missing(mergePrefix, mergeShards, mergeFinalMissing, mergeAllowPartial)
		if err != nil {
			return err
		}
		log.Info("merged missing-instance reports",
			zap.Int("shards", missingMerged),
			zap.String("out", mergeFinalMissing))

		if mergeManifest != "" && mergeRunID != "" {
			store, err := manifest.Open(mergeManifest)
			if err != nil {
				return err
			}
			defer store.Close()

			totals, err := store.Totals(mergeRunID)
			if err != nil {
				if mergeAllowPartial {
					log.Warn("manifest totals unavailable", zap.Error(err))
					return nil
				}
				return err
			}
			log.Info("final summary",
				zap.Int("total_missing_in_file1", totals.MissingInFile1),
				zap.Int("total_missing_in_file2", totals.MissingInFile2),
				zap.Int("total_comparison_lines", totals.ComparisonLines))
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergePrefix, "prefix", "results/run", "per-shard output prefix used by compare")
	mergeCmd.Flags().IntVar(&mergeShards, "shards", 10, "number of shards (K)")
	mergeCmd.Flags().StringVar(&mergeFinalCSV, "out-csv", "final_comparison.csv", "final comparison CSV path")
	mergeCmd.Flags().StringVar(&mergeFinalMissing, "out-missing", "final_missing_instances.txt", "final missing-instances report path")
	mergeCmd.Flags().BoolVar(&mergeAllowPartial, "allow-partial", false, "merge the shards that are present instead of failing")
	mergeCmd.Flags().StringVar(&mergeManifest, "manifest", "", "manifest db path (optional)")
	mergeCmd.Flags().StringVar(&mergeRunID, "run", "", "run ID in the manifest (optional)")

	rootCmd.AddCommand(mergeCmd)
}
