// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events groups treatment and measurement events by subject and
// orders each subject's events by (timestamp, input order).
package events

import (
	"slices"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Sorted returns a copy of evs ordered by (timestamp, seq). Undated events
// sort last. The input slice is not modified.
func Sorted(evs []types.Event) []types.Event {
	out := slices.Clone(evs)
	slices.SortStableFunc(out, func(a, b types.Event) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out
}

// Store is an immutable per-subject index over two event streams.
type Store struct {
	treatments   map[string][]types.Event
	measurements map[string][]types.Event
}

// NewStore indexes evs by subject and kind. Events of any other kind are
// ignored.
func NewStore(evs ...[]types.Event) *Store {
	s := &Store{
		treatments:   make(map[string][]types.Event),
		measurements: make(map[string][]types.Event),
	}
	for _, batch := range evs {
		for _, e := range batch {
			switch e.Kind {
			case types.EventTreatment:
				s.treatments[e.SubjectID] = append(s.treatments[e.SubjectID], e)
			case types.EventMeasurement:
				s.measurements[e.SubjectID] = append(s.measurements[e.SubjectID], e)
			}
		}
	}
	for id, list := range s.treatments {
		s.treatments[id] = Sorted(list)
	}
	for id, list := range s.measurements {
		s.measurements[id] = Sorted(list)
	}
	return s
}

// Treatments returns the subject's treatment events in (timestamp, seq)
// order. The returned slice is a copy.
func (s *Store) Treatments(subjectID string) []types.Event {
	return slices.Clone(s.treatments[subjectID])
}

// Measurements returns the subject's measurement events in (timestamp, seq)
// order. The returned slice is a copy.
func (s *Store) Measurements(subjectID string) []types.Event {
	return slices.Clone(s.measurements[subjectID])
}

// HasTreatments reports whether the subject has any treatment event.
func (s *Store) HasTreatments(subjectID string) bool {
	return len(s.treatments[subjectID]) > 0
}

// HasMeasurements reports whether the subject has any measurement event.
func (s *Store) HasMeasurements(subjectID string) bool {
	return len(s.measurements[subjectID]) > 0
}
