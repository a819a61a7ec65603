// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tables reads and writes the row-oriented CSV tables exchanged
// between pipeline stages.
//
// Columns are located by header name, so column order and extra columns in
// input files do not matter. A missing file or a missing required column is
// fatal. A date that cannot be parsed becomes a null value and is left for
// the pipeline to exclude.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/guregu/null.v3"
)

// DateLayout is the layout used for every date written by this package.
const DateLayout = "2006-01-02"

// IOError reports an input or output table that could not be read or
// written. It aborts the run.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrMissingColumn is wrapped when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

var errEmpty = errors.New("empty value")

// ParseDate parses s in UTC and truncates it to the calendar day, so every
// date in the pipeline is a UTC midnight and survives a DateLayout round
// trip unchanged. Empty or unrecognized input yields a null time.
func ParseDate(s string) null.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return null.Time{}
	}
	t = t.UTC()
	return null.TimeFrom(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// FormatDate writes t as YYYY-MM-DD, or an empty string when null.
func FormatDate(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(DateLayout)
}

// ParseFloat parses s; empty or "NA"-style cells yield a null float.
func ParseFloat(s string) (null.Float, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return null.Float{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(f), nil
}

// FormatFloat writes f in its shortest round-trip form.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatNullFloat writes f, or an empty string when null.
func FormatNullFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return FormatFloat(f.Float64)
}

// FormatNullInt writes n, or an empty string when null.
func FormatNullInt(n null.Int) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}

// FormatBool writes 1 or 0.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts 1/0 and true/false.
func ParseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

// table is a parsed CSV file with a header index.
type table struct {
	path   string
	cols   map[string]int
	rows   [][]string
	header []string
}

// readTable loads a CSV file and checks that every required column exists.
func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, &IOError{Path: path, Op: "read", Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}

	t := &table{path: path, cols: make(map[string]int, len(header)), header: header}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			return nil, &IOError{Path: path, Op: "read", Err: fmt.Errorf("%w %q", ErrMissingColumn, c)}
		}
	}

	t.rows, err = r.ReadAll()
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	return t, nil
}

// get returns the named cell of row, or "" when the row is short.
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowErr describes a malformed cell. Line numbers count the header as 1.
func (t *table) rowErr(idx int, col string, err error) error {
	return &IOError{Path: t.path, Op: "parse", Err: fmt.Errorf("line %d, column %s: %w", idx+2, col, err)}
}

// writeTable writes header and rows to path through a temp file in the same
// directory, creating the directory if needed.
func writeTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Path: dir, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".table-*.tmp")
	if err != nil {
		return &IOError{Path: path, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	if writeErr == nil {
		writeErr = w.WriteAll(rows)
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return &IOError{Path: path, Op: "write", Err: writeErr}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return &IOError{Path: path, Op: "close", Err: closeErr}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
