// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// ExposureRecord is a subject's first qualifying treatment.
type ExposureRecord struct {
	SubjectID string `json:"subject_id" yaml:"subject_id"`

	// FirstExposureDate anchors every measurement window. It is always set
	// by the resolver; it can be null only when re-read from a cohort table
	// whose date cell failed to parse.
	FirstExposureDate null.Time `json:"first_exposure_date" yaml:"first_exposure_date"`

	Drug string `json:"drug" yaml:"drug"`
	Dose string `json:"dose" yaml:"dose"`
}

// CohortEntry is one row of the intermediate cohort table: a subject joined
// with its exposure.
type CohortEntry struct {
	Subject  Subject        `json:"subject" yaml:"subject"`
	Exposure ExposureRecord `json:"exposure" yaml:"exposure"`
}

// WindowRole names the measurement window a value was selected for.
type WindowRole string

const (
	RoleBaseline WindowRole = "baseline"
	RoleFollowUp WindowRole = "followup"
)

// WindowedMeasurement is the measurement selected for one role.
type WindowedMeasurement struct {
	SubjectID string     `json:"subject_id" yaml:"subject_id"`
	Role      WindowRole `json:"role" yaml:"role"`
	Value     null.Float `json:"value" yaml:"value"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
}

// MeasuredEntry is a cohort entry with its windowed measurements attached.
// A nil measurement means no event fell inside that window.
type MeasuredEntry struct {
	CohortEntry
	Baseline *WindowedMeasurement `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	FollowUp *WindowedMeasurement `json:"followup,omitempty" yaml:"followup,omitempty"`
}

// Complete reports whether both windows resolved to a value.
func (m MeasuredEntry) Complete() bool {
	return m.Baseline != nil && m.Baseline.Value.Valid &&
		m.FollowUp != nil && m.FollowUp.Value.Valid
}

// CohortRow is a final, labeled row of the cohort table.
type CohortRow struct {
	CohortEntry

	BaselineValue  float64 `json:"baseline_value" yaml:"baseline_value"`
	FollowUpValue  float64 `json:"followup_value" yaml:"followup_value"`
	PctChange      float64 `json:"pct_change" yaml:"pct_change"`
	IsResponder    bool    `json:"is_responder" yaml:"is_responder"`
	IsNonresponder bool    `json:"is_nonresponder" yaml:"is_nonresponder"`
}
