// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the cohort definition and the paths file.
//
// Both files are YAML. Required keys must be present; optional keys fall
// back to the defaults below. Every value is validated before a config is
// returned.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/cohort-engine/pkg/types"
)

// EnvPrefix is the environment prefix for overrides (e.g. COHORT_MIN_AGE).
const EnvPrefix = "COHORT"

// DefaultWorkers is the window-selection concurrency used when unset.
const DefaultWorkers = 1

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
}

// cohortFile mirrors the cohort YAML document.
type cohortFile struct {
	MinAge                int      `mapstructure:"min_age" validate:"gte=0,lte=150"`
	BaselineWindowDays    []int    `mapstructure:"baseline_window_days" validate:"len=2"`
	FollowupWindowDays    []int    `mapstructure:"followup_window_days" validate:"len=2"`
	ResponderThreshold    float64  `mapstructure:"responder_threshold"`
	NonresponderThreshold float64  `mapstructure:"nonresponder_threshold"`
	DrugFilter            []string `mapstructure:"drug_filter" validate:"min=1,dive,required"`
	Workers               int      `mapstructure:"workers" validate:"gte=1,lte=256"`
}

var cohortRequired = []string{"min_age", "baseline_window_days", "followup_window_days"}

// pathsFile mirrors the paths YAML document.
type pathsFile struct {
	DemoInterimDir    string `mapstructure:"demo_interim_dir" validate:"required"`
	OutputsDir        string `mapstructure:"outputs_dir" validate:"required"`
	ProductionDataDir string `mapstructure:"production_data_dir"`
}

var pathsRequired = []string{"demo_interim_dir", "outputs_dir"}

// LoadCohort reads the cohort config at path.
func LoadCohort(path string) (types.CohortConfig, error) {
	v, err := read(path)
	if err != nil {
		return types.CohortConfig{}, err
	}
	v.SetDefault("responder_threshold", types.DefaultResponderThreshold)
	v.SetDefault("nonresponder_threshold", types.DefaultNonresponderThreshold)
	v.SetDefault("drug_filter", types.DefaultDrugFilter)
	v.SetDefault("workers", DefaultWorkers)

	if err := requireKeys(v, path, cohortRequired); err != nil {
		return types.CohortConfig{}, err
	}

	var f cohortFile
	if err := v.Unmarshal(&f); err != nil {
		return types.CohortConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := check(path, &f); err != nil {
		return types.CohortConfig{}, err
	}

	cfg := types.CohortConfig{
		MinAge:                f.MinAge,
		BaselineWindow:        types.Window{Lo: f.BaselineWindowDays[0], Hi: f.BaselineWindowDays[1]},
		FollowUpWindow:        types.Window{Lo: f.FollowupWindowDays[0], Hi: f.FollowupWindowDays[1]},
		ResponderThreshold:    f.ResponderThreshold,
		NonresponderThreshold: f.NonresponderThreshold,
		DrugFilter:            f.DrugFilter,
		Workers:               f.Workers,
	}
	if cfg.BaselineWindow.Lo > cfg.BaselineWindow.Hi {
		return types.CohortConfig{}, fmt.Errorf("config: %s: baseline_window_days: lo %d is after hi %d",
			path, cfg.BaselineWindow.Lo, cfg.BaselineWindow.Hi)
	}
	if cfg.FollowUpWindow.Lo > cfg.FollowUpWindow.Hi {
		return types.CohortConfig{}, fmt.Errorf("config: %s: followup_window_days: lo %d is after hi %d",
			path, cfg.FollowUpWindow.Lo, cfg.FollowUpWindow.Hi)
	}
	return cfg, nil
}

// LoadPaths reads the paths config at path.
func LoadPaths(path string) (types.PathsConfig, error) {
	v, err := read(path)
	if err != nil {
		return types.PathsConfig{}, err
	}
	if err := requireKeys(v, path, pathsRequired); err != nil {
		return types.PathsConfig{}, err
	}

	var f pathsFile
	if err := v.Unmarshal(&f); err != nil {
		return types.PathsConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := check(path, &f); err != nil {
		return types.PathsConfig{}, err
	}
	return types.PathsConfig{
		DemoInterimDir:    f.DemoInterimDir,
		OutputsDir:        f.OutputsDir,
		ProductionDataDir: f.ProductionDataDir,
	}, nil
}

func read(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return v, nil
}

func requireKeys(v *viper.Viper, path string, keys []string) error {
	var missing []string
	for _, k := range keys {
		if !v.IsSet(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %s: missing required key(s): %s", path, strings.Join(missing, ", "))
	}
	return nil
}

func check(path string, f any) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("config: %s: %s", path, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "len":
		return fmt.Sprintf("%s must have exactly %s values [lo, hi]", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value())
	}
}
