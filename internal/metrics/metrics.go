// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes per-stage subject counts as Prometheus gauges
// and writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/cohort-engine/internal/cohort"
)

const namespace = "cohort"

// Recorder holds the gauges for one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry
	stages   *prometheus.GaugeVec
	labels   *prometheus.GaugeVec
}

// New builds a Recorder with its gauges registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_subjects",
				Help:      "Subjects remaining after each pipeline stage",
			},
			[]string{"stage"},
		),
		labels: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "label_subjects",
				Help:      "Labeled subjects by outcome",
			},
			[]string{"label"},
		),
	}
	r.registry.MustRegister(r.stages, r.labels)
	return r
}

// Registry returns the registry the gauges live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStages sets one stage gauge per count.
func (r *Recorder) ObserveStages(counts []cohort.StageCount) {
	for _, c := range counts {
		r.stages.WithLabelValues(c.Stage).Set(float64(c.Count))
	}
}

// ObserveLabels sets the outcome gauges from a ComputeLabels summary.
func (r *Recorder) ObserveLabels(sum cohort.Summary) {
	r.labels.WithLabelValues("responder").Set(float64(sum.Responders))
	r.labels.WithLabelValues("nonresponder").Set(float64(sum.Nonresponders))
	r.labels.WithLabelValues("zero_baseline").Set(float64(sum.ZeroBaseline))
}

// WriteTextfile writes all gauges to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
