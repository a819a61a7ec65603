// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

var (
	// ErrNoRuns is returned when a query needs the latest run and none exist.
	ErrNoRuns = errors.New("no runs recorded")

	// ErrRunNotFound is returned for a run ID that was never ingested.
	ErrRunNotFound = errors.New("run not found")
)

// QueryOptions filters the rows of one run.
type QueryOptions struct {
	// RunID selects the run. Empty means the most recent run.
	RunID string

	// Responder keeps only responder rows.
	Responder bool

	// Nonresponder keeps only nonresponder rows.
	Nonresponder bool

	// Limit caps the result count. Zero means no limit.
	Limit int
}

// LatestRun returns the most recently ingested run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// run returns the run with id, or the latest run when id is empty.
func (s *Store) run(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return s.LatestRun(ctx)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Rows returns the stored rows of a run in their original order.
func (s *Store) Rows(ctx context.Context, opts QueryOptions) ([]types.CohortRow, error) {
	run, err := s.run(ctx, opts.RunID)
	if err != nil {
		return nil, err
	}
	var (
		qb   strings.Builder
		args = []any{run.ID}
	)
	qb.WriteString(
		`SELECT subject_id, age, sex, bmi, first_exposure_date, drug, dose,
			baseline_value, followup_value, pct_change, is_responder, is_nonresponder
		FROM cohort_rows
		WHERE run_id = ?`)
	if opts.Responder {
		qb.WriteString(` AND is_responder = 1`)
	}
	if opts.Nonresponder {
		qb.WriteString(` AND is_nonresponder = 1`)
	}
	qb.WriteString(` ORDER BY position`)
	if opts.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out []types.CohortRow
	for rows.Next() {
		var (
			r       types.CohortRow
			sex     string
			date    sql.NullString
			drug    sql.NullString
			dose    sql.NullString
			bmi     null.Float
			age     null.Int
			subject string
		)
		if err := rows.Scan(
			&subject, &age, &sex, &bmi, &date, &drug, &dose,
			&r.BaselineValue, &r.FollowUpValue, &r.PctChange, &r.IsResponder, &r.IsNonresponder,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Subject.ID = subject
		r.Subject.Sex = types.Sex(sex)
		r.Subject.Age = age
		r.Subject.BMI = bmi
		r.Exposure = types.ExposureRecord{
			SubjectID:         subject,
			FirstExposureDate: tables.ParseDate(date.String),
			Drug:              drug.String,
			Dose:              dose.String,
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
