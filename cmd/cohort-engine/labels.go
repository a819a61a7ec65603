// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cohort-engine/internal/cohort"
	"github.com/pdiddy/cohort-engine/internal/metrics"
	"github.com/pdiddy/cohort-engine/internal/source"
	"github.com/pdiddy/cohort-engine/internal/store"
	"github.com/pdiddy/cohort-engine/internal/tables"
)

var computeLabelsCmd = &cobra.Command{
	Use:   "compute-labels",
	Short: "Attach baseline and follow-up values and label response",
	Long: `Compute-labels reads the cohort written by build-cohort, selects the
earliest measurement in the baseline and follow-up windows around each
subject's first exposure, computes the percent change, and writes
<outputs_dir>/labels/cohort_with_labels.csv.

Subjects missing either measurement, or with a zero baseline, are left out.
With --record the labeled rows are also stored as a new run.`,
	RunE: runComputeLabels,
}

func runComputeLabels(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	src, err := source.New(env.mode, env.paths)
	if err != nil {
		return err
	}

	// The source is asked first so an unsupported mode fails before any
	// cohort table left over from another mode is read.
	measurements, err := src.Measurements()
	if err != nil {
		return fmt.Errorf("loading measurements: %w", err)
	}
	entries, err := tables.ReadCohort(source.CohortPath(env.paths))
	if err != nil {
		return fmt.Errorf("loading cohort: %w", err)
	}

	p := cohort.New(env.cohort, cohort.WithLogger(slog.Default()))
	rows, sum, err := p.ComputeLabels(cmd.Context(), entries, measurements)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	path := source.LabelsPath(env.paths)
	if err := tables.WriteLabels(path, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "[compute-labels] Wrote %d rows with labels -> %s\n", len(rows), path)
	fmt.Fprintf(out, "responders: %d, nonresponders: %d, zero baseline: %d\n",
		sum.Responders, sum.Nonresponders, sum.ZeroBaseline)

	if record, _ := cmd.Flags().GetBool("record"); record {
		s, err := store.Open(source.IndexDir(env.paths))
		if err != nil {
			return err
		}
		defer s.Close()
		run, err := s.Ingest(cmd.Context(), rows, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded run %s\n", run.ID)
	}

	rec := metrics.New()
	rec.ObserveStages(sum.LabelStages())
	rec.ObserveLabels(sum)
	return writeMetrics(rec)
}

func init() {
	computeLabelsCmd.Flags().Bool("record", false, "store the labeled rows as a new run")
	rootCmd.AddCommand(computeLabelsCmd)
}
