// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window selects measurements that fall inside day-offset windows
// around an anchor date.
package window

import (
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/internal/events"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Match is the measurement selected for a window.
type Match struct {
	Value     null.Float
	Timestamp time.Time
	Seq       int
}

// Bounds returns the inclusive calendar bounds of w around anchor.
func Bounds(anchor time.Time, w types.Window) (lo, hi time.Time) {
	return anchor.AddDate(0, 0, w.Lo), anchor.AddDate(0, 0, w.Hi)
}

// Contains reports whether ts lies within w around anchor, bounds included.
func Contains(anchor time.Time, w types.Window, ts time.Time) bool {
	lo, hi := Bounds(anchor, w)
	return !ts.Before(lo) && !ts.After(hi)
}

// Select returns the earliest dated measurement inside w around anchor,
// breaking timestamp ties by Seq. The match is returned even when its value
// is null; callers decide whether a null value completes a row.
func Select(evs []types.Event, anchor time.Time, w types.Window) (Match, bool) {
	for _, e := range events.Sorted(evs) {
		if e.Kind != types.EventMeasurement || !e.Timestamp.Valid {
			continue
		}
		if Contains(anchor, w, e.Timestamp.Time) {
			return Match{Value: e.Value, Timestamp: e.Timestamp.Time, Seq: e.Seq}, true
		}
	}
	return Match{}, false
}
