// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source resolves where the pipeline reads its input tables and
// writes its outputs for a given run mode.
package source

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// ErrUnsupportedMode is returned by every load in production mode.
var ErrUnsupportedMode = errors.New("production data reader is not provided")

// Demo input file names under the demo interim directory.
const (
	ClinicalFile = "clinical_demo.csv"
	LabsFile     = "labs_demo.csv"
	MedsFile     = "meds_demo.csv"
)

const (
	cohortDir  = "cohort"
	cohortFile = "cohort.csv"
	labelsDir  = "labels"
	labelsFile = "cohort_with_labels.csv"
	indexDir   = "index"
)

// Source loads the three input tables.
type Source interface {
	Subjects() ([]types.Subject, error)
	Treatments() ([]types.Event, error)
	Measurements() ([]types.Event, error)
}

// New returns the Source for mode.
func New(mode types.Mode, paths types.PathsConfig) (Source, error) {
	switch mode {
	case types.ModeDemo:
		if paths.DemoInterimDir == "" {
			return nil, fmt.Errorf("demo mode: demo_interim_dir is not set")
		}
		return &demo{dir: paths.DemoInterimDir}, nil
	case types.ModeProduction:
		return production{dir: paths.ProductionDataDir}, nil
	default:
		return nil, fmt.Errorf("unknown mode %d", mode)
	}
}

type demo struct {
	dir string
}

func (d *demo) Subjects() ([]types.Subject, error) {
	return tables.ReadSubjects(filepath.Join(d.dir, ClinicalFile))
}

func (d *demo) Treatments() ([]types.Event, error) {
	return tables.ReadTreatments(filepath.Join(d.dir, MedsFile))
}

func (d *demo) Measurements() ([]types.Event, error) {
	return tables.ReadMeasurements(filepath.Join(d.dir, LabsFile))
}

// production is a placeholder for a real data warehouse reader.
type production struct {
	dir string
}

func (p production) Subjects() ([]types.Subject, error) { return nil, p.err("subjects") }

func (p production) Treatments() ([]types.Event, error) { return nil, p.err("treatments") }

func (p production) Measurements() ([]types.Event, error) { return nil, p.err("measurements") }

func (p production) err(table string) error {
	return fmt.Errorf("loading %s from %q: %w", table, p.dir, ErrUnsupportedMode)
}

// CohortPath is where build-cohort writes its table.
func CohortPath(paths types.PathsConfig) string {
	return filepath.Join(paths.OutputsDir, cohortDir, cohortFile)
}

// LabelsPath is where compute-labels writes its table.
func LabelsPath(paths types.PathsConfig) string {
	return filepath.Join(paths.OutputsDir, labelsDir, labelsFile)
}

// IndexDir holds the run store database and its exports.
func IndexDir(paths types.PathsConfig) string {
	return filepath.Join(paths.OutputsDir, indexDir)
}
