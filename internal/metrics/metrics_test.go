// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cohort-engine/internal/cohort"
)

func TestObserveStages(t *testing.T) {
	r := New()
	sum := cohort.Summary{Subjects: 10, WithEvents: 9, Exposed: 8, Eligible: 7}
	r.ObserveStages(sum.BuildStages())

	assert.Equal(t, 10.0, testutil.ToFloat64(r.stages.WithLabelValues("subjects")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.stages.WithLabelValues("eligible")))
	assert.Equal(t, 4, testutil.CollectAndCount(r.stages))
}

func TestObserveLabels(t *testing.T) {
	r := New()
	r.ObserveLabels(cohort.Summary{Responders: 3, Nonresponders: 2, ZeroBaseline: 1})

	assert.Equal(t, 3.0, testutil.ToFloat64(r.labels.WithLabelValues("responder")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.labels.WithLabelValues("nonresponder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.labels.WithLabelValues("zero_baseline")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStages([]cohort.StageCount{{Stage: "labeled", Count: 5}})
	r.ObserveLabels(cohort.Summary{Responders: 2})

	path := filepath.Join(t.TempDir(), "cohort.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `cohort_stage_subjects{stage="labeled"} 5`)
	assert.Contains(t, out, `cohort_label_subjects{label="responder"} 2`)
	assert.Contains(t, out, "# TYPE cohort_stage_subjects gauge")
}

func TestWriteTextfileBadPath(t *testing.T) {
	r := New()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "cohort.prom"))
	assert.Error(t, err)
}
