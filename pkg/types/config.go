package types

import "fmt"

// Window is an inclusive range of day offsets relative to an anchor date.
// Lo may be negative (days before the anchor).
type Window struct {
	Lo int `json:"lo" yaml:"lo"`
	Hi int `json:"hi" yaml:"hi"`
}

// Default label thresholds, in percent change.
const (
	DefaultResponderThreshold    = -40.0
	DefaultNonresponderThreshold = -20.0
)

// DefaultDrugFilter lists the drug-name tokens that mark a qualifying
// treatment: the statin class marker plus specific statins.
var DefaultDrugFilter = []string{"statin", "atorvastatin", "rosuvastatin", "simvastatin"}

// CohortConfig holds the cohort definition and labeling settings.
type CohortConfig struct {
	// MinAge is the minimum age, inclusive, for cohort eligibility.
	MinAge int `json:"min_age" yaml:"min_age"`

	// BaselineWindow locates the pre-exposure measurement.
	BaselineWindow Window `json:"baseline_window_days" yaml:"baseline_window_days"`

	// FollowUpWindow locates the post-exposure measurement.
	FollowUpWindow Window `json:"followup_window_days" yaml:"followup_window_days"`

	// ResponderThreshold: pct change at or below this is a responder (default -40).
	ResponderThreshold float64 `json:"responder_threshold" yaml:"responder_threshold"`

	// NonresponderThreshold: pct change at or above this is a nonresponder (default -20).
	NonresponderThreshold float64 `json:"nonresponder_threshold" yaml:"nonresponder_threshold"`

	// DrugFilter lists case-insensitive substrings that qualify a treatment.
	DrugFilter []string `json:"drug_filter" yaml:"drug_filter"`

	// Workers bounds per-subject window selection concurrency (default 1).
	Workers int `json:"workers" yaml:"workers"`
}

// PathsConfig holds the input and output locations.
type PathsConfig struct {
	// DemoInterimDir holds clinical_demo.csv, labs_demo.csv and meds_demo.csv.
	DemoInterimDir string `json:"demo_interim_dir" yaml:"demo_interim_dir"`

	// ProductionDataDir is reserved for a production reader.
	ProductionDataDir string `json:"production_data_dir,omitempty" yaml:"production_data_dir,omitempty"`

	// OutputsDir is the base directory for cohort/, labels/ and index/.
	OutputsDir string `json:"outputs_dir" yaml:"outputs_dir"`
}

// Mode selects the data source implementation.
type Mode int

const (
	ModeDemo Mode = iota
	ModeProduction
)

func (m Mode) String() string {
	switch m {
	case ModeDemo:
		return "demo"
	case ModeProduction:
		return "production"
	default:
		return "unknown"
	}
}

// ParseMode maps a --mode flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "demo", "":
		return ModeDemo, nil
	case "production":
		return ModeProduction, nil
	default:
		return 0, fmt.Errorf("unknown mode %q: use demo or production", s)
	}
}
