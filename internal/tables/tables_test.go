// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		want  time.Time
		valid bool
	}{
		{"2023-04-05", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), true},
		{"2023-04-05 13:30:00", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), true},
		{"2023-04-05T10:00:00+02:00", time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), true},
		{"2023-04-05T23:30:00-02:00", time.Date(2023, 4, 6, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in)
			require.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
				assert.Equal(t, time.UTC, got.Time.Location())
			}
		})
	}
}

func TestReadSubjects(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "clinical.csv", "id,age,sex,bmi,extra\nPAT_1,63,M,28.4,x\nPAT_2,45.0,f,,y\n")

	got, err := ReadSubjects(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.Subject{ID: "PAT_1", Age: null.IntFrom(63), Sex: types.SexMale, BMI: null.FloatFrom(28.4)}, got[0])
	assert.Equal(t, null.IntFrom(45), got[1].Age)
	assert.Equal(t, types.SexFemale, got[1].Sex)
	assert.False(t, got[1].BMI.Valid)
}

func TestReadSubjectsMissingAge(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clinical.csv", "id,age,sex,bmi\nA,,M,20\nB,NA,F,21\nC,52,F,22\n")

	got, err := ReadSubjects(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.False(t, got[0].Age.Valid)
	assert.False(t, got[1].Age.Valid)
	assert.Equal(t, null.IntFrom(52), got[2].Age)

	out := filepath.Join(t.TempDir(), "clinical.csv")
	require.NoError(t, WriteSubjects(out, got))
	again, err := ReadSubjects(out)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDateTimeOfDaySurvivesCohortRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meds := writeFile(t, dir, "meds.csv", "id,date,drug,dose\nA,2023-01-05 09:00:00,atorvastatin,20mg\n")
	treatments, err := ReadTreatments(meds)
	require.NoError(t, err)
	require.Len(t, treatments, 1)

	entry := types.CohortEntry{
		Subject: types.Subject{ID: "A", Age: null.IntFrom(50), Sex: types.SexMale},
		Exposure: types.ExposureRecord{
			SubjectID:         "A",
			FirstExposureDate: treatments[0].Timestamp,
			Drug:              treatments[0].Drug,
			Dose:              treatments[0].Dose,
		},
	}
	path := filepath.Join(dir, "cohort.csv")
	require.NoError(t, WriteCohort(path, []types.CohortEntry{entry}))
	entries, err := ReadCohort(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, treatments[0].Timestamp, entries[0].Exposure.FirstExposureDate)
}

func TestReadSubjectsBadCell(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad age", "id,age,sex,bmi\nA,old,M,20\n", "line 2, column age"},
		{"fractional age", "id,age,sex,bmi\nA,63.5,M,20\n", "invalid age"},
		{"bad sex", "id,age,sex,bmi\nA,40,X,20\n", "column sex"},
		{"empty id", "id,age,sex,bmi\n,40,M,20\n", "empty subject id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSubjects(writeFile(t, t.TempDir(), "s.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReadMissingFileIsIOError(t *testing.T) {
	_, err := ReadTreatments(filepath.Join(t.TempDir(), "meds_demo.csv"))
	require.Error(t, err)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "labs.csv", "id,date,ldl\nA,2023-01-01,150\n")
	_, err := ReadMeasurements(path)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadMeasurements(t *testing.T) {
	path := writeFile(t, t.TempDir(), "labs.csv",
		"date,id,value\n2023-01-02,A,150\nsometime,A,140\n2023-03-01,B,\n")

	got, err := ReadMeasurements(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "A", got[0].SubjectID)
	assert.Equal(t, types.EventMeasurement, got[0].Kind)
	assert.Equal(t, 150.0, got[0].Value.Float64)
	assert.Equal(t, 0, got[0].Seq)

	assert.False(t, got[1].Timestamp.Valid, "unparseable date becomes null")
	assert.Equal(t, 1, got[1].Seq)

	assert.True(t, got[2].Timestamp.Valid)
	assert.False(t, got[2].Value.Valid)
}

func TestReadTreatments(t *testing.T) {
	path := writeFile(t, t.TempDir(), "meds.csv",
		"id,date,drug,dose\nA,2023-01-02,Atorvastatin,20mg\n")
	got, err := ReadTreatments(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.EventTreatment, got[0].Kind)
	assert.Equal(t, "Atorvastatin", got[0].Drug)
	assert.Equal(t, "20mg", got[0].Dose)
}

func sampleRows() []types.CohortRow {
	entry := types.CohortEntry{
		Subject: types.Subject{ID: "PAT_1000", Age: null.IntFrom(61), Sex: types.SexFemale, BMI: null.FloatFrom(31.2)},
		Exposure: types.ExposureRecord{
			SubjectID:         "PAT_1000",
			FirstExposureDate: null.TimeFrom(time.Date(2022, 5, 17, 0, 0, 0, 0, time.UTC)),
			Drug:              "rosuvastatin",
			Dose:              "10 mg",
		},
	}
	return []types.CohortRow{{
		CohortEntry:    entry,
		BaselineValue:  160,
		FollowUpValue:  96,
		PctChange:      -40,
		IsResponder:    true,
		IsNonresponder: false,
	}}
}

func TestWriteCohortLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort", "cohort.csv")
	require.NoError(t, WriteCohort(path, []types.CohortEntry{sampleRows()[0].CohortEntry}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"id,age,sex,bmi,first_exposure_date,drug,dose\n"+
			"PAT_1000,61,F,31.2,2022-05-17,rosuvastatin,10 mg\n",
		string(data))

	entries, err := ReadCohort(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sampleRows()[0].CohortEntry, entries[0])
}

func TestWriteLabelsLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels", "cohort_with_labels.csv")
	require.NoError(t, WriteLabels(path, sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"id,age,sex,bmi,first_exposure_date,drug,dose,baseline_value,followup_value,pct_change,is_responder,is_nonresponder\n"+
			"PAT_1000,61,F,31.2,2022-05-17,rosuvastatin,10 mg,160,96,-40,1,0\n",
		string(data))

	rows, err := ReadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestReadCohortKeepsUnparseableDateAsNull(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cohort.csv",
		"id,age,sex,bmi,first_exposure_date,drug,dose\nA,50,M,25,??,atorvastatin,20mg\n")
	entries, err := ReadCohort(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Exposure.FirstExposureDate.Valid)
	assert.Equal(t, "A", entries[0].Exposure.SubjectID)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCohort(filepath.Join(dir, "cohort.csv"), nil))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cohort.csv", entries[0].Name())
}
