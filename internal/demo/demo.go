// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package demo generates a small synthetic statin dataset in the layout the
// demo source reads. The same seed always yields the same dataset.
package demo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/pdiddy/cohort-engine/internal/source"
	"github.com/pdiddy/cohort-engine/internal/tables"
	"github.com/pdiddy/cohort-engine/pkg/types"
)

const (
	DefaultSubjects = 150
	DefaultSeed     = 42

	statinShare    = 0.85
	otherMedsShare = 0.30
	minLDL         = 40
)

// DefaultStart is the first possible exposure date.
var DefaultStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

var statins = []struct{ drug, dose string }{
	{"atorvastatin", "20 mg"},
	{"atorvastatin", "40 mg"},
	{"rosuvastatin", "10 mg"},
	{"simvastatin", "40 mg"},
}

var otherMeds = []struct{ drug, dose string }{
	{"metformin", "500 mg"},
	{"lisinopril", "10 mg"},
	{"amlodipine", "5 mg"},
}

// Config controls dataset generation.
type Config struct {
	Subjects int
	Seed     uint64
	Start    time.Time
}

// Dataset is one generated set of input tables.
type Dataset struct {
	Subjects     []types.Subject
	Treatments   []types.Event
	Measurements []types.Event
}

// Generate builds a dataset. Each subject gets a clinical row; about 85%
// start a statin within a year of cfg.Start and get one LDL draw 1-30 days
// before and one 60-120 days after the start.
func Generate(cfg Config) Dataset {
	if cfg.Subjects <= 0 {
		cfg.Subjects = DefaultSubjects
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultStart
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var ds Dataset
	for i := range cfg.Subjects {
		id := fmt.Sprintf("PAT_%d", 1000+i)
		sex := types.SexMale
		if rng.IntN(2) == 1 {
			sex = types.SexFemale
		}
		ds.Subjects = append(ds.Subjects, types.Subject{
			ID:  id,
			Age: null.IntFrom(int64(45 + rng.IntN(31))),
			Sex: sex,
			BMI: null.FloatFrom(round1(normal(rng, 28.5, 4.5))),
		})

		if rng.Float64() < otherMedsShare {
			m := otherMeds[rng.IntN(len(otherMeds))]
			ds.Treatments = append(ds.Treatments,
				types.Treatment(id, cfg.Start.AddDate(0, 0, rng.IntN(365)), m.drug, m.dose, len(ds.Treatments)))
		}
		if rng.Float64() >= statinShare {
			continue
		}

		s := statins[rng.IntN(len(statins))]
		start := cfg.Start.AddDate(0, 0, rng.IntN(365))
		ds.Treatments = append(ds.Treatments, types.Treatment(id, start, s.drug, s.dose, len(ds.Treatments)))

		baseline := math.Max(minLDL, math.Round(normal(rng, 160, 30)))
		reduction := clip(normal(rng, 0.40, 0.05), 0.05, 0.65)
		followUp := math.Round(baseline * (1 - reduction))

		ds.Measurements = append(ds.Measurements,
			types.Measurement(id, start.AddDate(0, 0, -(1+rng.IntN(30))), baseline, len(ds.Measurements)),
			types.Measurement(id, start.AddDate(0, 0, 60+rng.IntN(61)), followUp, len(ds.Measurements)+1),
		)
	}
	return ds
}

// WriteDataset writes the three demo input tables into dir.
func WriteDataset(dir string, ds Dataset) error {
	if err := tables.WriteSubjects(filepath.Join(dir, source.ClinicalFile), ds.Subjects); err != nil {
		return err
	}
	if err := tables.WriteTreatments(filepath.Join(dir, source.MedsFile), ds.Treatments); err != nil {
		return err
	}
	return tables.WriteMeasurements(filepath.Join(dir, source.LabsFile), ds.Measurements)
}

func normal(rng *rand.Rand, mean, sd float64) float64 {
	return mean + sd*rng.NormFloat64()
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
