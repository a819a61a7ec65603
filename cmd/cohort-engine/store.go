// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cohort-engine/internal/source"
	"github.com/pdiddy/cohort-engine/internal/store"
	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Record, query and export labeled runs",
	Long: `Store keeps a history of labeled cohorts in a SQLite database at
<outputs_dir>/index/cohort.db. Use subcommands to ingest a labels table,
list runs, query rows, or export a run.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store a labels table as a new run",
	Long: `Ingest reads a table written by compute-labels (by default
<outputs_dir>/labels/cohort_with_labels.csv) and stores it as a new run.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	paths, err := loadPaths()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("labels")
	if path == "" {
		path = source.LabelsPath(paths)
	}

	rows, err := tables.ReadLabels(path)
	if err != nil {
		return err
	}

	s, err := store.Open(source.IndexDir(paths))
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.Ingest(cmd.Context(), rows, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recorded run %s (%d rows, %d responders, %d nonresponders)\n",
		run.ID, run.RowCount, run.Responders, run.Nonresponders)
	return nil
}

// --- runs subcommand ---

var storeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE:  runStoreRuns,
}

func runStoreRuns(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Runs(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-20s  %6s  %6s  %6s  %s\n", "Run", "Created", "Rows", "Resp", "Nonr", "Source")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %6d  %6d  %6d  %s\n",
			r.ID, r.CreatedAt.Format(time.DateTime), r.RowCount, r.Responders, r.Nonresponders, r.SourcePath)
	}
	return nil
}

// --- query subcommand ---

var storeQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the rows of a recorded run",
	Long: `Query prints the rows of a run (the latest run unless --run is given),
optionally keeping only responders or nonresponders.`,
	RunE: runStoreQuery,
}

func runStoreQuery(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.Rows(cmd.Context(), queryOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(cmd, rows, jsonOutput)
}

func formatQueryOutput(cmd *cobra.Command, rows []types.CohortRow, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No rows found.")
		return nil
	}

	fmt.Fprintf(out, "%-12s  %-10s  %-14s  %8s  %8s  %8s  %s\n",
		"Subject", "Exposure", "Drug", "Baseline", "FollowUp", "Change", "Label")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, r := range rows {
		drug := r.Exposure.Drug
		if len(drug) > 14 {
			drug = drug[:11] + "..."
		}
		fmt.Fprintf(out, "%-12s  %-10s  %-14s  %8.1f  %8.1f  %7.1f%%  %s\n",
			r.Subject.ID, tables.FormatDate(r.Exposure.FirstExposureDate), drug,
			r.BaselineValue, r.FollowUpValue, r.PctChange, outcome(r))
	}
	fmt.Fprintf(out, "\n%d rows\n", len(rows))
	return nil
}

func outcome(r types.CohortRow) string {
	switch {
	case r.IsResponder && r.IsNonresponder:
		return "both"
	case r.IsResponder:
		return "responder"
	case r.IsNonresponder:
		return "nonresponder"
	default:
		return "-"
	}
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a recorded run to YAML or JSON",
	Long: `Export writes a run (the latest unless --run is given) to
<outputs_dir>/index/export.yaml or export.json. Supports the same filter
flags as query for partial exports.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	opts := queryOptsFromFlags(cmd)

	var path string
	switch format {
	case "yaml", "":
		path, err = s.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = s.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

// openStore opens the run database, failing if it has not been created.
func openStore() (*store.Store, error) {
	paths, err := loadPaths()
	if err != nil {
		return nil, err
	}
	dir := source.IndexDir(paths)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("no run store at %s: record a run with compute-labels --record or store ingest", dir)
	}
	return store.Open(dir)
}

func queryOptsFromFlags(cmd *cobra.Command) store.QueryOptions {
	runID, _ := cmd.Flags().GetString("run")
	responders, _ := cmd.Flags().GetBool("responders")
	nonresponders, _ := cmd.Flags().GetBool("nonresponders")
	limit, _ := cmd.Flags().GetInt("limit")
	return store.QueryOptions{
		RunID:        runID,
		Responder:    responders,
		Nonresponder: nonresponders,
		Limit:        limit,
	}
}

func init() {
	storeIngestCmd.Flags().String("labels", "", "labels table to ingest (default: <outputs_dir>/labels/cohort_with_labels.csv)")

	for _, c := range []*cobra.Command{storeQueryCmd, storeExportCmd} {
		c.Flags().String("run", "", "run ID (default: latest run)")
		c.Flags().Bool("responders", false, "keep only responders")
		c.Flags().Bool("nonresponders", false, "keep only nonresponders")
		c.Flags().Int("limit", 0, "maximum rows (0 = all)")
	}
	storeQueryCmd.Flags().Bool("json", false, "output rows as JSON")
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeRunsCmd)
	storeCmd.AddCommand(storeQueryCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
