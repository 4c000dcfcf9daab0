package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/logpack/logpack"
	"github.com/logpack/logpack/internal/config"
)

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logpack",
		Short: "compact conversation logs",
		Long: `logpack removes duplicated messages and merges adjacent system
messages in stored conversation logs. Rewrites are atomic: a log is
either fully compacted or left untouched.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return config.LoadOrCreate(path)
}

func newLogger(cmd *cobra.Command) logpack.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return logpack.NewSlogLogger(slog.New(handler))
}

func newRunner(cmd *cobra.Command, cfg config.Config) (*logpack.Runner, func(), error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	runner, err := logpack.New(store, &logpack.Config{
		WindowSize:     cfg.Compaction.WindowSize,
		MergeDelimiter: cfg.Compaction.MergeDelimiter,
		Workers:        cfg.Compaction.Workers,
	}, newLogger(cmd))
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	return runner, closeStore, nil
}
