package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"
	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func row(id string, pct float64, responder, nonresponder bool) types.CohortRow {
	return types.CohortRow{
		CohortEntry: types.CohortEntry{
			Subject: types.Subject{ID: id, Age: null.IntFrom(58), Sex: types.SexMale, BMI: null.FloatFrom(29.1)},
			Exposure: types.ExposureRecord{
				SubjectID:         id,
				FirstExposureDate: null.TimeFrom(time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC)),
				Drug:              "atorvastatin",
				Dose:              "20 mg",
			},
		},
		BaselineValue:  160,
		FollowUpValue:  160 * (1 + pct/100),
		PctChange:      pct,
		IsResponder:    responder,
		IsNonresponder: nonresponder,
	}
}

func sampleRows() []types.CohortRow {
	return []types.CohortRow{
		row("PAT_1003", -45, true, false),
		row("PAT_1001", -15, false, true),
		row("PAT_1002", -30, false, false),
		row("PAT_1000", -50, true, false),
	}
}

func ids(rows []types.CohortRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Subject.ID
	}
	return out
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	s := testStore(t)
	for _, table := range []string{"runs", "cohort_rows"} {
		var count int
		err := s.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestOpenCreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs", "index")
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, dbFile)); os.IsNotExist(err) {
		t.Errorf("database file not created in %s", dir)
	}
}

// --- ingest tests ---

func TestIngestRecordsRun(t *testing.T) {
	s := testStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	run, err := s.Ingest(context.Background(), sampleRows(), "outputs/labels/cohort_with_labels.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if run.ID == "" {
		t.Error("run ID is empty")
	}
	if run.RowCount != 4 || run.Responders != 2 || run.Nonresponders != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/2/1", run.RowCount, run.Responders, run.Nonresponders)
	}

	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if !reflect.DeepEqual(runs[0], run) {
		t.Errorf("stored run = %+v, want %+v", runs[0], run)
	}
}

func TestIngestRoundTripsRows(t *testing.T) {
	s := testStore(t)
	want := sampleRows()
	want[2].Subject.BMI = null.Float{}
	want[2].Exposure.Dose = ""

	if _, err := s.Ingest(context.Background(), want, "labels.csv"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Rows(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rows mismatch\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestIngestEmptyRun(t *testing.T) {
	s := testStore(t)
	run, err := s.Ingest(context.Background(), nil, "labels.csv")
	if err != nil {
		t.Fatal(err)
	}
	if run.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", run.RowCount)
	}
	rows, err := s.Rows(context.Background(), QueryOptions{RunID: run.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

// --- query tests ---

func TestRowsFilters(t *testing.T) {
	s := testStore(t)
	if _, err := s.Ingest(context.Background(), sampleRows(), "labels.csv"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all in input order", QueryOptions{}, []string{"PAT_1003", "PAT_1001", "PAT_1002", "PAT_1000"}},
		{"responders", QueryOptions{Responder: true}, []string{"PAT_1003", "PAT_1000"}},
		{"nonresponders", QueryOptions{Nonresponder: true}, []string{"PAT_1001"}},
		{"limit", QueryOptions{Limit: 2}, []string{"PAT_1003", "PAT_1001"}},
		{"both flags", QueryOptions{Responder: true, Nonresponder: true}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Rows(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(rows)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowsDefaultsToLatestRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	first, err := s.Ingest(ctx, sampleRows(), "first.csv")
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := s.Ingest(ctx, sampleRows()[:1], "second.csv"); err != nil {
		t.Fatal(err)
	}

	latest, err := s.Rows(ctx, QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 {
		t.Errorf("latest run has %d rows, want 1", len(latest))
	}

	older, err := s.Rows(ctx, QueryOptions{RunID: first.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 4 {
		t.Errorf("first run has %d rows, want 4", len(older))
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].SourcePath != "second.csv" {
		t.Errorf("runs not newest first: %+v", runs)
	}
}

func TestRowsUnknownRun(t *testing.T) {
	s := testStore(t)
	if _, err := s.Ingest(context.Background(), sampleRows(), "labels.csv"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Rows(context.Background(), QueryOptions{RunID: "missing"})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestRowsWithoutRuns(t *testing.T) {
	s := testStore(t)
	_, err := s.Rows(context.Background(), QueryOptions{})
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("err = %v, want ErrNoRuns", err)
	}
}

// --- export tests ---

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	run, err := s.Ingest(context.Background(), sampleRows(), "labels.csv")
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.ExportYAML(context.Background(), QueryOptions{Responder: true})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(s.Dir(), "export.yaml") {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var exp Export
	if err := yaml.Unmarshal(data, &exp); err != nil {
		t.Fatalf("parsing export.yaml: %v", err)
	}
	if exp.Run.ID != run.ID {
		t.Errorf("run id = %s, want %s", exp.Run.ID, run.ID)
	}
	if len(exp.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(exp.Rows))
	}
	r := exp.Rows[0]
	if r.ID != "PAT_1003" || r.FirstExposureDate != "2022-03-04" || !r.IsResponder {
		t.Errorf("unexpected first row %+v", r)
	}
	if r.BMI == nil || *r.BMI != 29.1 {
		t.Errorf("BMI = %v, want 29.1", r.BMI)
	}
}

func TestExportJSON(t *testing.T) {
	s := testStore(t)
	rows := sampleRows()
	rows[0].Subject.BMI = null.Float{}
	if _, err := s.Ingest(context.Background(), rows, "labels.csv"); err != nil {
		t.Fatal(err)
	}

	path, err := s.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("parsing export.json: %v", err)
	}
	if len(exp.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(exp.Rows))
	}
	if exp.Rows[0].BMI != nil {
		t.Errorf("null BMI exported as %v", *exp.Rows[0].BMI)
	}
	if exp.Run.RowCount != 4 {
		t.Errorf("run row_count = %d, want 4", exp.Run.RowCount)
	}
}

func TestExportUnknownRun(t *testing.T) {
	s := testStore(t)
	if _, err := s.Ingest(context.Background(), sampleRows(), "labels.csv"); err != nil {
		t.Fatal(err)
	}
	_, err := s.ExportJSON(context.Background(), QueryOptions{RunID: "missing"})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}
