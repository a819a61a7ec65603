// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store records labeled cohort runs in a SQLite database so that
// past runs can be queried and exported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

const (
	dbFile = "cohort.db"

	// createdLayout is fixed width so that created_at sorts as text.
	createdLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the run database under an index directory.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Run describes one ingested labels table.
type Run struct {
	ID            string    `json:"id" yaml:"id"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	SourcePath    string    `json:"source_path" yaml:"source_path"`
	RowCount      int       `json:"row_count" yaml:"row_count"`
	Responders    int       `json:"responders" yaml:"responders"`
	Nonresponders int       `json:"nonresponders" yaml:"nonresponders"`
}

// Open opens or creates dir/cohort.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir is the index directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			source_path TEXT,
			row_count INTEGER NOT NULL,
			responders INTEGER NOT NULL,
			nonresponders INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cohort_rows (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			subject_id TEXT NOT NULL,
			age INTEGER,
			sex TEXT,
			bmi REAL,
			first_exposure_date TEXT,
			drug TEXT,
			dose TEXT,
			baseline_value REAL NOT NULL,
			followup_value REAL NOT NULL,
			pct_change REAL NOT NULL,
			is_responder INTEGER NOT NULL,
			is_nonresponder INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cohort_rows_subject ON cohort_rows(subject_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Ingest stores rows as a new run and returns it.
func (s *Store) Ingest(ctx context.Context, rows []types.CohortRow, sourcePath string) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		CreatedAt:  s.now().UTC(),
		SourcePath: sourcePath,
		RowCount:   len(rows),
	}
	for _, r := range rows {
		if r.IsResponder {
			run.Responders++
		}
		if r.IsNonresponder {
			run.Nonresponders++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source_path, row_count, responders, nonresponders)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(createdLayout), run.SourcePath,
		run.RowCount, run.Responders, run.Nonresponders,
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cohort_rows (run_id, position, subject_id, age, sex, bmi, first_exposure_date,
			drug, dose, baseline_value, followup_value, pct_change, is_responder, is_nonresponder)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx,
			run.ID, i, r.Subject.ID, r.Subject.Age, string(r.Subject.Sex), r.Subject.BMI,
			tables.FormatDate(r.Exposure.FirstExposureDate), r.Exposure.Drug, r.Exposure.Dose,
			r.BaselineValue, r.FollowUpValue, r.PctChange, r.IsResponder, r.IsNonresponder,
		)
		if err != nil {
			return Run{}, fmt.Errorf("inserting row %s: %w", r.Subject.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// Runs lists ingested runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source_path, row_count, responders, nonresponders
		 FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
			src     sql.NullString
		)
		if err := rows.Scan(&r.ID, &created, &src, &r.RowCount, &r.Responders, &r.Nonresponders); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt, err = time.Parse(createdLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of run %s: %w", r.ID, err)
		}
		r.SourcePath = src.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
