// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Export is one run with its rows, flattened for YAML and JSON.
type Export struct {
	Run  Run         `json:"run" yaml:"run"`
	Rows []ExportRow `json:"rows" yaml:"rows"`
}

// ExportRow holds the columns of the labels table.
type ExportRow struct {
	ID                string   `json:"id" yaml:"id"`
	Age               *int64   `json:"age,omitempty" yaml:"age,omitempty"`
	Sex               string   `json:"sex" yaml:"sex"`
	BMI               *float64 `json:"bmi,omitempty" yaml:"bmi,omitempty"`
	FirstExposureDate string   `json:"first_exposure_date" yaml:"first_exposure_date"`
	Drug              string   `json:"drug" yaml:"drug"`
	Dose              string   `json:"dose" yaml:"dose"`
	BaselineValue     float64  `json:"baseline_value" yaml:"baseline_value"`
	FollowUpValue     float64  `json:"followup_value" yaml:"followup_value"`
	PctChange         float64  `json:"pct_change" yaml:"pct_change"`
	IsResponder       bool     `json:"is_responder" yaml:"is_responder"`
	IsNonresponder    bool     `json:"is_nonresponder" yaml:"is_nonresponder"`
}

// ExportYAML writes the selected run to export.yaml in the index
// directory and returns the file path.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	exp, err := s.export(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(exp)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the selected run to export.json in the index
// directory and returns the file path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	exp, err := s.export(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) export(ctx context.Context, opts QueryOptions) (Export, error) {
	run, err := s.run(ctx, opts.RunID)
	if err != nil {
		return Export{}, err
	}
	opts.RunID = run.ID
	rows, err := s.Rows(ctx, opts)
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}

	exp := Export{Run: run, Rows: make([]ExportRow, len(rows))}
	for i, r := range rows {
		exp.Rows[i] = exportRow(r)
	}
	return exp, nil
}

func exportRow(r types.CohortRow) ExportRow {
	return ExportRow{
		ID:                r.Subject.ID,
		Age:               r.Subject.Age.Ptr(),
		Sex:               string(r.Subject.Sex),
		BMI:               r.Subject.BMI.Ptr(),
		FirstExposureDate: tables.FormatDate(r.Exposure.FirstExposureDate),
		Drug:              r.Exposure.Drug,
		Dose:              r.Exposure.Dose,
		BaselineValue:     r.BaselineValue,
		FollowUpValue:     r.FollowUpValue,
		PctChange:         r.PctChange,
		IsResponder:       r.IsResponder,
		IsNonresponder:    r.IsNonresponder,
	}
}
