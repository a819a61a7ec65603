// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// EventKind distinguishes the two longitudinal event streams.
type EventKind string

const (
	EventTreatment   EventKind = "treatment"
	EventMeasurement EventKind = "measurement"
)

// Event is one dated row from a treatment or measurement table.
//
// Treatment events carry Drug and Dose; measurement events carry Value.
// Timestamp is the UTC calendar day of the event, or null when the source
// date could not be parsed; undated events never qualify for exposure or
// window selection.
type Event struct {
	SubjectID string    `json:"subject_id" yaml:"subject_id"`
	Timestamp null.Time `json:"timestamp" yaml:"timestamp"`
	Kind      EventKind `json:"kind" yaml:"kind"`

	Drug string `json:"drug,omitempty" yaml:"drug,omitempty"`
	Dose string `json:"dose,omitempty" yaml:"dose,omitempty"`

	Value null.Float `json:"value" yaml:"value"`

	// Seq is the zero-based row index in the source table. Events with equal
	// timestamps are ordered by Seq.
	Seq int `json:"seq" yaml:"seq"`
}

// Before reports whether e sorts strictly before o by (timestamp, seq).
// Events without a timestamp sort after all dated events.
func (e Event) Before(o Event) bool {
	switch {
	case e.Timestamp.Valid && !o.Timestamp.Valid:
		return true
	case !e.Timestamp.Valid && o.Timestamp.Valid:
		return false
	case e.Timestamp.Valid && !e.Timestamp.Time.Equal(o.Timestamp.Time):
		return e.Timestamp.Time.Before(o.Timestamp.Time)
	}
	return e.Seq < o.Seq
}

// Treatment builds a treatment event.
func Treatment(subjectID string, ts time.Time, drug, dose string, seq int) Event {
	return Event{
		SubjectID: subjectID,
		Timestamp: null.TimeFrom(ts),
		Kind:      EventTreatment,
		Drug:      drug,
		Dose:      dose,
		Seq:       seq,
	}
}

// Measurement builds a measurement event.
func Measurement(subjectID string, ts time.Time, value float64, seq int) Event {
	return Event{
		SubjectID: subjectID,
		Timestamp: null.TimeFrom(ts),
		Kind:      EventMeasurement,
		Value:     null.FloatFrom(value),
		Seq:       seq,
	}
}
