package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/keydiff/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "keydiff",
	Short: "Distributed key-based diff for instance report files",
	Long: `keydiff compares two large delimited instance report files and reports,
per instance key, which keys exist in only one file and how the values of
matched keys differ (numeric deviation or string equality).

Inputs are split into key-hash shards so shard pairs can be compared
independently, in parallel or on different machines, and the partial
results merged into one final report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Report through the standard logger; console format for a CLI tool.
		l, logErr := logging.New(logging.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Config{Level: logLevel, Format: logFormat})
}
