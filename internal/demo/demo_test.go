// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package demo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cohort-engine/internal/cohort"
	"github.com/pdiddy/cohort-engine/internal/exposure"
	"github.com/pdiddy/cohort-engine/internal/source"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(Config{Subjects: 50, Seed: 7})
	b := Generate(Config{Subjects: 50, Seed: 7})
	assert.Equal(t, a, b)

	c := Generate(Config{Subjects: 50, Seed: 8})
	assert.NotEqual(t, a.Measurements, c.Measurements)
}

func TestGenerateShape(t *testing.T) {
	ds := Generate(Config{Subjects: 200, Seed: 1})
	require.Len(t, ds.Subjects, 200)
	assert.Equal(t, "PAT_1000", ds.Subjects[0].ID)

	for _, s := range ds.Subjects {
		require.True(t, s.Age.Valid)
		assert.GreaterOrEqual(t, s.Age.Int64, int64(45))
		assert.LessOrEqual(t, s.Age.Int64, int64(75))
		assert.True(t, s.BMI.Valid)
	}

	f := exposure.NewFilter(types.DefaultDrugFilter)
	exposed := 0
	for _, e := range ds.Treatments {
		if f.Matches(e.Drug) {
			exposed++
		}
	}
	assert.Equal(t, 2*exposed, len(ds.Measurements), "one baseline and one follow-up draw per statin start")
	assert.Greater(t, exposed, 140)
	assert.Less(t, exposed, 200)

	for i, m := range ds.Measurements {
		assert.Equal(t, i, m.Seq)
		assert.Positive(t, m.Value.Float64)
	}
}

func TestGeneratedDataLabelsEveryExposedSubject(t *testing.T) {
	dir := t.TempDir()
	ds := Generate(Config{Subjects: 100, Seed: 3})
	require.NoError(t, WriteDataset(dir, ds))

	for _, name := range []string{source.ClinicalFile, source.MedsFile, source.LabsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	src, err := source.New(types.ModeDemo, types.PathsConfig{DemoInterimDir: dir})
	require.NoError(t, err)
	subjects, err := src.Subjects()
	require.NoError(t, err)
	treatments, err := src.Treatments()
	require.NoError(t, err)
	measurements, err := src.Measurements()
	require.NoError(t, err)

	p := cohort.New(types.CohortConfig{
		MinAge:                18,
		BaselineWindow:        types.Window{Lo: -30, Hi: 0},
		FollowUpWindow:        types.Window{Lo: 30, Hi: 120},
		ResponderThreshold:    types.DefaultResponderThreshold,
		NonresponderThreshold: types.DefaultNonresponderThreshold,
		DrugFilter:            types.DefaultDrugFilter,
		Workers:               4,
	})
	entries, _ := p.BuildCohort(subjects, treatments)
	rows, sum, err := p.ComputeLabels(context.Background(), entries, measurements)
	require.NoError(t, err)

	assert.Len(t, rows, len(entries))
	assert.Zero(t, sum.ZeroBaseline)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.PctChange, -66.0, r.Subject.ID)
		assert.LessOrEqual(t, r.PctChange, -4.0, r.Subject.ID)
	}
}
