// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"fmt"
	"math"

	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Input table columns.
var (
	SubjectColumns     = []string{"id", "age", "sex", "bmi"}
	MeasurementColumns = []string{"id", "date", "value"}
	TreatmentColumns   = []string{"id", "date", "drug", "dose"}
)

// ReadSubjects loads a subjects table (id, age, sex, bmi).
func ReadSubjects(path string) ([]types.Subject, error) {
	t, err := readTable(path, SubjectColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]types.Subject, 0, len(t.rows))
	for i, row := range t.rows {
		s, err := t.subject(i, row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *table) subject(i int, row []string) (types.Subject, error) {
	id := t.get(row, "id")
	if id == "" {
		return types.Subject{}, t.rowErr(i, "id", fmt.Errorf("empty subject id"))
	}
	age, err := parseAge(t.get(row, "age"))
	if err != nil {
		return types.Subject{}, t.rowErr(i, "age", err)
	}
	sex, err := types.ParseSex(t.get(row, "sex"))
	if err != nil {
		return types.Subject{}, t.rowErr(i, "sex", err)
	}
	bmi, err := ParseFloat(t.get(row, "bmi"))
	if err != nil {
		return types.Subject{}, t.rowErr(i, "bmi", err)
	}
	return types.Subject{ID: id, Age: age, Sex: sex, BMI: bmi}, nil
}

// parseAge accepts whole numbers, including float spellings such as "63.0".
// Empty or "NA"-style cells yield a null age.
func parseAge(s string) (null.Int, error) {
	f, err := ParseFloat(s)
	if err != nil || (f.Valid && f.Float64 != math.Trunc(f.Float64)) {
		return null.Int{}, fmt.Errorf("invalid age %q", s)
	}
	if !f.Valid {
		return null.Int{}, nil
	}
	return null.IntFrom(int64(f.Float64)), nil
}

// ReadMeasurements loads a measurement table (id, date, value). Seq is the
// zero-based data row index.
func ReadMeasurements(path string) ([]types.Event, error) {
	t, err := readTable(path, MeasurementColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]types.Event, 0, len(t.rows))
	for i, row := range t.rows {
		v, err := ParseFloat(t.get(row, "value"))
		if err != nil {
			return nil, t.rowErr(i, "value", err)
		}
		out = append(out, types.Event{
			SubjectID: t.get(row, "id"),
			Timestamp: ParseDate(t.get(row, "date")),
			Kind:      types.EventMeasurement,
			Value:     v,
			Seq:       i,
		})
	}
	return out, nil
}

// ReadTreatments loads a treatment table (id, date, drug, dose). Seq is the
// zero-based data row index.
func ReadTreatments(path string) ([]types.Event, error) {
	t, err := readTable(path, TreatmentColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]types.Event, 0, len(t.rows))
	for i, row := range t.rows {
		out = append(out, types.Event{
			SubjectID: t.get(row, "id"),
			Timestamp: ParseDate(t.get(row, "date")),
			Kind:      types.EventTreatment,
			Drug:      t.get(row, "drug"),
			Dose:      t.get(row, "dose"),
			Seq:       i,
		})
	}
	return out, nil
}

// WriteSubjects writes a subjects table.
func WriteSubjects(path string, subjects []types.Subject) error {
	rows := make([][]string, len(subjects))
	for i, s := range subjects {
		rows[i] = subjectCells(s)
	}
	return writeTable(path, SubjectColumns, rows)
}

// WriteMeasurements writes measurement events as (id, date, value).
func WriteMeasurements(path string, evs []types.Event) error {
	rows := make([][]string, len(evs))
	for i, e := range evs {
		rows[i] = []string{e.SubjectID, FormatDate(e.Timestamp), FormatNullFloat(e.Value)}
	}
	return writeTable(path, MeasurementColumns, rows)
}

// WriteTreatments writes treatment events as (id, date, drug, dose).
func WriteTreatments(path string, evs []types.Event) error {
	rows := make([][]string, len(evs))
	for i, e := range evs {
		rows[i] = []string{e.SubjectID, FormatDate(e.Timestamp), e.Drug, e.Dose}
	}
	return writeTable(path, TreatmentColumns, rows)
}

func subjectCells(s types.Subject) []string {
	return []string{s.ID, FormatNullInt(s.Age), string(s.Sex), FormatNullFloat(s.BMI)}
}
