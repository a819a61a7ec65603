// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cohort-engine CLI.
//
// The CLI builds a treatment-exposure cohort from subject, treatment and
// measurement tables, labels each subject's response, and optionally keeps
// a record of labeled runs in a local SQLite database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cohort-engine/internal/config"
	"github.com/pdiddy/cohort-engine/internal/metrics"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the cohort-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "cohort-engine",
	Short: "Build treatment cohorts and label treatment response",
	Long: `cohort-engine turns raw clinical tables into an analysis-ready cohort.

build-cohort resolves each subject's first qualifying treatment and applies
eligibility rules. compute-labels picks the baseline and follow-up
measurements around that treatment and labels responders and
nonresponders. generate-demo writes a synthetic dataset to try the
pipeline on, and store keeps a history of labeled runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(viper.GetBool("verbose"))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "config/cohort.yml", "cohort definition file")
	flags.String("paths", "config/paths.yml", "paths file")
	flags.String("mode", "demo", "data source: demo or production")
	flags.String("metrics-file", "", "write stage counts to this Prometheus textfile")
	flags.BoolP("verbose", "v", false, "log per-stage counts and exclusions")
}

// initConfig lets COHORT_* environment variables stand in for the
// persistent flags.
func initConfig() {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	for _, name := range []string{"config", "paths", "mode", "metrics-file", "verbose"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.BindEnv("metrics-file", config.EnvPrefix+"_METRICS_FILE")
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runEnv is the configuration shared by the pipeline commands.
type runEnv struct {
	mode   types.Mode
	cohort types.CohortConfig
	paths  types.PathsConfig
}

func loadPaths() (types.PathsConfig, error) {
	return config.LoadPaths(viper.GetString("paths"))
}

func loadEnv() (runEnv, error) {
	mode, err := types.ParseMode(viper.GetString("mode"))
	if err != nil {
		return runEnv{}, err
	}
	cohort, err := config.LoadCohort(viper.GetString("config"))
	if err != nil {
		return runEnv{}, err
	}
	paths, err := loadPaths()
	if err != nil {
		return runEnv{}, err
	}
	return runEnv{mode: mode, cohort: cohort, paths: paths}, nil
}

// writeMetrics writes the recorder to --metrics-file when it is set.
func writeMetrics(rec *metrics.Recorder) error {
	path := viper.GetString("metrics-file")
	if path == "" {
		return nil
	}
	if err := rec.WriteTextfile(path); err != nil {
		return err
	}
	slog.Debug("metrics written", "path", path)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
