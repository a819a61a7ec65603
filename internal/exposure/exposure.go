// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package exposure resolves each subject's first qualifying treatment.
package exposure

import (
	"strings"

	"github.com/pdiddy/cohort-engine/internal/events"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Filter matches drug names against a set of lower-cased tokens.
type Filter struct {
	tokens []string
}

// NewFilter builds a Filter from tokens. Tokens are trimmed and lower-cased;
// empty tokens are dropped. A Filter with no tokens matches nothing.
func NewFilter(tokens []string) Filter {
	var f Filter
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" {
			f.tokens = append(f.tokens, tok)
		}
	}
	return f
}

// Tokens returns the normalized tokens.
func (f Filter) Tokens() []string {
	return append([]string(nil), f.tokens...)
}

// Matches reports whether drug contains any token, ignoring case.
func (f Filter) Matches(drug string) bool {
	drug = strings.ToLower(drug)
	for _, tok := range f.tokens {
		if strings.Contains(drug, tok) {
			return true
		}
	}
	return false
}

// Qualifies reports whether e is a dated treatment matched by the filter.
func (f Filter) Qualifies(e types.Event) bool {
	return e.Kind == types.EventTreatment && e.Timestamp.Valid && f.Matches(e.Drug)
}

// Resolve returns the earliest qualifying treatment in evs. Ties on
// timestamp go to the lowest Seq. ok is false when nothing qualifies.
func Resolve(evs []types.Event, f Filter) (rec types.ExposureRecord, ok bool) {
	for _, e := range events.Sorted(evs) {
		if !f.Qualifies(e) {
			continue
		}
		return types.ExposureRecord{
			SubjectID:         e.SubjectID,
			FirstExposureDate: e.Timestamp,
			Drug:              e.Drug,
			Dose:              e.Dose,
		}, true
	}
	return types.ExposureRecord{}, false
}
