package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/keydiff/internal/config"
	"pkg.jsn.cam/keydiff/internal/shard"
)

var (
	shardFile     string
	shardKeyCols  string
	shardCount    int
	shardDir      string
	shardProgress bool
)

// shardCmd splits one input file into key-routed shard files.
var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Split one input file into key-hash shard files",
	Long: `Split an input file into K shard files named <basename>_shard_<i>.txt.

Each accepted line is routed by a stable FNV-1a hash of its key columns, so
the same key always lands in the same shard index no matter which process
or host did the sharding. Blank, comment, and metadata lines are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		keyCols, err := config.ParseCols(shardKeyCols)
		if err != nil {
			return err
		}

		res, err := shard.File(shardFile, keyCols, shardCount, shardDir, log, shard.Options{Progress: shardProgress})
		if err != nil {
			return err
		}

		log.Info("shard complete",
			zap.String("file", shardFile),
			zap.Int("shards", len(res.Paths)),
			zap.Int64("routed", res.Routed),
			zap.Int64("dropped", res.Dropped))
		return nil
	},
}

func init() {
	shardCmd.Flags().StringVar(&shardFile, "file", "", "path to the input file")
	shardCmd.Flags().StringVar(&shardKeyCols, "keycols", "", "comma-separated 0-based key column indices")
	shardCmd.Flags().IntVar(&shardCount, "shards", 10, "number of shards (K)")
	shardCmd.Flags().StringVar(&shardDir, "dir", "shards", "output directory for shard files")
	shardCmd.Flags().BoolVar(&shardProgress, "progress", true, "show a byte progress bar")
	_ = shardCmd.MarkFlagRequired("file")
	_ = shardCmd.MarkFlagRequired("keycols")

	rootCmd.AddCommand(shardCmd)
}
