// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"slices"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Output table columns.
var (
	CohortColumns = []string{"id", "age", "sex", "bmi", "first_exposure_date", "drug", "dose"}
	LabelColumns  = append(slices.Clone(CohortColumns),
		"baseline_value", "followup_value", "pct_change", "is_responder", "is_nonresponder")
)

// WriteCohort writes the intermediate cohort table.
func WriteCohort(path string, entries []types.CohortEntry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = entryCells(e)
	}
	return writeTable(path, CohortColumns, rows)
}

// ReadCohort loads a cohort table written by WriteCohort. An unparseable
// first_exposure_date is kept as a null date.
func ReadCohort(path string) ([]types.CohortEntry, error) {
	t, err := readTable(path, CohortColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]types.CohortEntry, 0, len(t.rows))
	for i, row := range t.rows {
		e, err := t.entry(i, row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteLabels writes the final labeled cohort table.
func WriteLabels(path string, rows []types.CohortRow) error {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = append(entryCells(r.CohortEntry),
			FormatFloat(r.BaselineValue),
			FormatFloat(r.FollowUpValue),
			FormatFloat(r.PctChange),
			FormatBool(r.IsResponder),
			FormatBool(r.IsNonresponder),
		)
	}
	return writeTable(path, LabelColumns, cells)
}

// ReadLabels loads a table written by WriteLabels.
func ReadLabels(path string) ([]types.CohortRow, error) {
	t, err := readTable(path, LabelColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]types.CohortRow, 0, len(t.rows))
	for i, row := range t.rows {
		e, err := t.entry(i, row)
		if err != nil {
			return nil, err
		}
		r := types.CohortRow{CohortEntry: e}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"baseline_value", &r.BaselineValue},
			{"followup_value", &r.FollowUpValue},
			{"pct_change", &r.PctChange},
		} {
			v, err := ParseFloat(t.get(row, f.col))
			if err == nil && !v.Valid {
				err = errEmpty
			}
			if err != nil {
				return nil, t.rowErr(i, f.col, err)
			}
			*f.dst = v.Float64
		}
		if r.IsResponder, err = ParseBool(t.get(row, "is_responder")); err != nil {
			return nil, t.rowErr(i, "is_responder", err)
		}
		if r.IsNonresponder, err = ParseBool(t.get(row, "is_nonresponder")); err != nil {
			return nil, t.rowErr(i, "is_nonresponder", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *table) entry(i int, row []string) (types.CohortEntry, error) {
	s, err := t.subject(i, row)
	if err != nil {
		return types.CohortEntry{}, err
	}
	return types.CohortEntry{
		Subject: s,
		Exposure: types.ExposureRecord{
			SubjectID:         s.ID,
			FirstExposureDate: ParseDate(t.get(row, "first_exposure_date")),
			Drug:              t.get(row, "drug"),
			Dose:              t.get(row, "dose"),
		},
	}, nil
}

func entryCells(e types.CohortEntry) []string {
	return append(subjectCells(e.Subject),
		FormatDate(e.Exposure.FirstExposureDate),
		e.Exposure.Drug,
		e.Exposure.Dose,
	)
}
