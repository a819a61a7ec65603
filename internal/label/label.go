// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package label derives the percent-change outcome and its threshold
// classifications.
package label

import (
	"errors"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// ErrDivisionUndefined is returned when the baseline value is zero.
var ErrDivisionUndefined = errors.New("percent change undefined for zero baseline")

// Thresholds holds the classification cut points in percent change.
type Thresholds struct {
	Responder    float64
	Nonresponder float64
}

// DefaultThresholds returns the -40 / -20 cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Responder:    types.DefaultResponderThreshold,
		Nonresponder: types.DefaultNonresponderThreshold,
	}
}

// ThresholdsFrom reads the cut points from a cohort config.
func ThresholdsFrom(cfg types.CohortConfig) Thresholds {
	return Thresholds{
		Responder:    cfg.ResponderThreshold,
		Nonresponder: cfg.NonresponderThreshold,
	}
}

// Result is the computed outcome for one row.
type Result struct {
	PctChange      float64
	IsResponder    bool
	IsNonresponder bool
}

// PctChange returns 100 * (followup - baseline) / baseline.
func PctChange(baseline, followup float64) (float64, error) {
	if baseline == 0 {
		return 0, ErrDivisionUndefined
	}
	return 100 * (followup - baseline) / baseline, nil
}

// Compute classifies the change from baseline to followup. The responder and
// nonresponder flags are evaluated independently: depending on the thresholds
// a row can carry both, or neither.
func Compute(baseline, followup float64, th Thresholds) (Result, error) {
	pct, err := PctChange(baseline, followup)
	if err != nil {
		return Result{}, err
	}
	return Result{
		PctChange:      pct,
		IsResponder:    pct <= th.Responder,
		IsNonresponder: pct >= th.Nonresponder,
	}, nil
}
