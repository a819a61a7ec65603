// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cohort-engine/internal/cohort"
	"github.com/pdiddy/cohort-engine/internal/metrics"
	"github.com/pdiddy/cohort-engine/internal/source"
	"github.com/pdiddy/cohort-engine/internal/tables"
)

var buildCohortCmd = &cobra.Command{
	Use:   "build-cohort",
	Short: "Resolve first exposures and write the eligible cohort",
	Long: `Build-cohort loads subjects and treatments, finds each subject's first
treatment matching the drug filter, keeps subjects who meet the minimum age,
and writes <outputs_dir>/cohort/cohort.csv.`,
	RunE: runBuildCohort,
}

func runBuildCohort(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	src, err := source.New(env.mode, env.paths)
	if err != nil {
		return err
	}

	subjects, err := src.Subjects()
	if err != nil {
		return fmt.Errorf("loading subjects: %w", err)
	}
	treatments, err := src.Treatments()
	if err != nil {
		return fmt.Errorf("loading treatments: %w", err)
	}

	p := cohort.New(env.cohort, cohort.WithLogger(slog.Default()))
	entries, sum := p.BuildCohort(subjects, treatments)

	path := source.CohortPath(env.paths)
	if err := tables.WriteCohort(path, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[build-cohort] Wrote %d rows -> %s\n", len(entries), path)
	slog.Debug("build-cohort summary",
		"subjects", sum.Subjects, "with_events", sum.WithEvents,
		"exposed", sum.Exposed, "eligible", sum.Eligible)

	rec := metrics.New()
	rec.ObserveStages(sum.BuildStages())
	return writeMetrics(rec)
}

func init() {
	rootCmd.AddCommand(buildCohortCmd)
}
