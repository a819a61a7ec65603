// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cohort

import "github.com/pdiddy/cohort-engine/pkg/types"

// Filter decides whether a cohort entry stays in the cohort.
type Filter func(e types.CohortEntry) bool

// MinAge keeps subjects whose age is at least n. A null age never passes.
func MinAge(n int) Filter {
	return func(e types.CohortEntry) bool {
		return e.Subject.Age.Valid && e.Subject.Age.Int64 >= int64(n)
	}
}

// HasExposureDate keeps entries whose exposure date is known.
func HasExposureDate() Filter {
	return func(e types.CohortEntry) bool {
		return e.Exposure.FirstExposureDate.Valid
	}
}

// ApplyFilters returns the entries accepted by every filter, in input order.
func ApplyFilters(entries []types.CohortEntry, filters ...Filter) []types.CohortEntry {
	out := make([]types.CohortEntry, 0, len(entries))
	for _, e := range entries {
		keep := true
		for _, f := range filters {
			if !f(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}
