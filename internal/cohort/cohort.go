// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cohort builds the exposure cohort and attaches windowed
// measurements and outcome labels.
//
// Each stage takes a table and returns a new one; inputs are never
// modified and rows keep their input order. BuildCohort runs the exposure
// and eligibility stages, ComputeLabels the window and label stages.
package cohort

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cohort-engine/internal/events"
	"github.com/pdiddy/cohort-engine/internal/exposure"
	"github.com/pdiddy/cohort-engine/internal/label"
	"github.com/pdiddy/cohort-engine/internal/window"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

// Summary counts the subjects that survive each stage.
type Summary struct {
	Subjects     int `json:"subjects" yaml:"subjects"`
	WithEvents   int `json:"with_events" yaml:"with_events"`
	Exposed      int `json:"exposed" yaml:"exposed"`
	Eligible     int `json:"eligible" yaml:"eligible"`
	WithBaseline int `json:"with_baseline" yaml:"with_baseline"`
	WithFollowUp int `json:"with_followup" yaml:"with_followup"`
	Complete     int `json:"complete" yaml:"complete"`
	ZeroBaseline int `json:"zero_baseline" yaml:"zero_baseline"`
	Labeled      int `json:"labeled" yaml:"labeled"`

	Responders    int `json:"responders" yaml:"responders"`
	Nonresponders int `json:"nonresponders" yaml:"nonresponders"`
}

// Stages returns the stage counts in pipeline order, keyed by stage name.
func (s Summary) Stages() []StageCount {
	return []StageCount{
		{"subjects", s.Subjects},
		{"with_events", s.WithEvents},
		{"exposed", s.Exposed},
		{"eligible", s.Eligible},
		{"with_baseline", s.WithBaseline},
		{"with_followup", s.WithFollowUp},
		{"complete", s.Complete},
		{"labeled", s.Labeled},
	}
}

// BuildStages returns the counts produced by BuildCohort.
func (s Summary) BuildStages() []StageCount {
	return s.Stages()[:4]
}

// LabelStages returns the counts produced by ComputeLabels.
func (s Summary) LabelStages() []StageCount {
	return s.Stages()[3:]
}

// StageCount is one entry of Summary.Stages.
type StageCount struct {
	Stage string
	Count int
}

// Pipeline holds the configuration shared by all stages.
type Pipeline struct {
	cfg     types.CohortConfig
	drugs   exposure.Filter
	th      label.Thresholds
	workers int
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger routes stage diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a Pipeline for cfg. A zero Workers value runs window selection
// on a single goroutine.
func New(cfg types.CohortConfig, opts ...Option) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	p := &Pipeline{
		cfg:     cfg,
		drugs:   exposure.NewFilter(cfg.DrugFilter),
		th:      label.ThresholdsFrom(cfg),
		workers: workers,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AttachExposure inner-joins subjects with their resolved exposure.
// Subjects without a qualifying treatment are dropped.
func (p *Pipeline) AttachExposure(subjects []types.Subject, store *events.Store) []types.CohortEntry {
	out := make([]types.CohortEntry, 0, len(subjects))
	for _, s := range subjects {
		rec, ok := exposure.Resolve(store.Treatments(s.ID), p.drugs)
		if !ok {
			p.logger.Debug("no qualifying exposure", "subject", s.ID)
			continue
		}
		out = append(out, types.CohortEntry{Subject: s, Exposure: rec})
	}
	p.logStage("attach_exposure", len(subjects), len(out))
	return out
}

// ApplyEligibility drops entries below the minimum age or without an
// exposure date.
func (p *Pipeline) ApplyEligibility(entries []types.CohortEntry) []types.CohortEntry {
	out := ApplyFilters(entries, MinAge(p.cfg.MinAge), HasExposureDate())
	p.logStage("apply_eligibility", len(entries), len(out))
	return out
}

// BuildCohort runs the exposure and eligibility stages.
func (p *Pipeline) BuildCohort(subjects []types.Subject, treatments []types.Event) ([]types.CohortEntry, Summary) {
	store := events.NewStore(treatments)

	sum := Summary{Subjects: len(subjects)}
	for _, s := range subjects {
		if store.HasTreatments(s.ID) {
			sum.WithEvents++
		}
	}

	exposed := p.AttachExposure(subjects, store)
	sum.Exposed = len(exposed)

	eligible := p.ApplyEligibility(exposed)
	sum.Eligible = len(eligible)

	return eligible, sum
}

// Measure wraps cohort entries for the window stages.
func Measure(entries []types.CohortEntry) []types.MeasuredEntry {
	out := make([]types.MeasuredEntry, len(entries))
	for i, e := range entries {
		out[i] = types.MeasuredEntry{CohortEntry: e}
	}
	return out
}

// AttachBaseline selects each entry's baseline measurement.
func (p *Pipeline) AttachBaseline(ctx context.Context, entries []types.MeasuredEntry, store *events.Store) ([]types.MeasuredEntry, error) {
	return p.attach(ctx, entries, store, types.RoleBaseline, p.cfg.BaselineWindow)
}

// AttachFollowUp selects each entry's follow-up measurement.
func (p *Pipeline) AttachFollowUp(ctx context.Context, entries []types.MeasuredEntry, store *events.Store) ([]types.MeasuredEntry, error) {
	return p.attach(ctx, entries, store, types.RoleFollowUp, p.cfg.FollowUpWindow)
}

// attach runs window selection per entry, up to p.workers at a time. Each
// goroutine writes only its own index, so output order equals input order.
func (p *Pipeline) attach(ctx context.Context, entries []types.MeasuredEntry, store *events.Store, role types.WindowRole, w types.Window) ([]types.MeasuredEntry, error) {
	out := slices.Clone(entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range out {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e := &out[i]
			anchor := e.Exposure.FirstExposureDate
			if !anchor.Valid {
				return nil
			}
			m, ok := window.Select(store.Measurements(e.Subject.ID), anchor.Time, w)
			if !ok {
				return nil
			}
			wm := &types.WindowedMeasurement{
				SubjectID: e.Subject.ID,
				Role:      role,
				Value:     m.Value,
				Timestamp: m.Timestamp,
			}
			switch role {
			case types.RoleBaseline:
				e.Baseline = wm
			case types.RoleFollowUp:
				e.FollowUp = wm
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DropIncomplete keeps entries whose baseline and follow-up values are both
// present.
func DropIncomplete(entries []types.MeasuredEntry) []types.MeasuredEntry {
	out := make([]types.MeasuredEntry, 0, len(entries))
	for _, e := range entries {
		if e.Complete() {
			out = append(out, e)
		}
	}
	return out
}

// AttachLabels computes the outcome for each complete entry. Rows with a
// zero baseline are excluded and counted in zero.
func (p *Pipeline) AttachLabels(entries []types.MeasuredEntry) (rows []types.CohortRow, zero int, err error) {
	rows = make([]types.CohortRow, 0, len(entries))
	for _, e := range entries {
		if !e.Complete() {
			continue
		}
		base, follow := e.Baseline.Value.Float64, e.FollowUp.Value.Float64
		res, err := label.Compute(base, follow, p.th)
		if errors.Is(err, label.ErrDivisionUndefined) {
			p.logger.Debug("zero baseline", "subject", e.Subject.ID)
			zero++
			continue
		}
		if err != nil {
			return nil, zero, err
		}
		rows = append(rows, types.CohortRow{
			CohortEntry:    e.CohortEntry,
			BaselineValue:  base,
			FollowUpValue:  follow,
			PctChange:      res.PctChange,
			IsResponder:    res.IsResponder,
			IsNonresponder: res.IsNonresponder,
		})
	}
	p.logStage("attach_labels", len(entries), len(rows))
	return rows, zero, nil
}

// ComputeLabels runs the window, completeness and label stages over a
// cohort table.
func (p *Pipeline) ComputeLabels(ctx context.Context, entries []types.CohortEntry, measurements []types.Event) ([]types.CohortRow, Summary, error) {
	store := events.NewStore(measurements)
	sum := Summary{Subjects: len(entries), Eligible: len(entries)}

	measured := Measure(entries)
	measured, err := p.AttachBaseline(ctx, measured, store)
	if err != nil {
		return nil, sum, err
	}
	measured, err = p.AttachFollowUp(ctx, measured, store)
	if err != nil {
		return nil, sum, err
	}
	for _, m := range measured {
		if m.Baseline == nil {
			continue
		}
		sum.WithBaseline++
		if m.FollowUp != nil {
			sum.WithFollowUp++
		}
	}
	p.logStage("attach_windows", len(entries), sum.WithFollowUp)

	complete := DropIncomplete(measured)
	sum.Complete = len(complete)
	p.logStage("drop_incomplete", len(measured), len(complete))

	rows, zero, err := p.AttachLabels(complete)
	if err != nil {
		return nil, sum, err
	}
	sum.ZeroBaseline = zero
	sum.Labeled = len(rows)
	for _, r := range rows {
		if r.IsResponder {
			sum.Responders++
		}
		if r.IsNonresponder {
			sum.Nonresponders++
		}
	}
	return rows, sum, nil
}

func (p *Pipeline) logStage(stage string, in, out int) {
	p.logger.Debug("stage complete", "stage", stage, "in", in, "out", out, "dropped", in-out)
}
