// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Sex is the recorded sex of a subject.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// ParseSex accepts "M" or "F" in either case.
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return SexMale, nil
	case "F":
		return SexFemale, nil
	default:
		return "", fmt.Errorf("unknown sex %q: want M or F", s)
	}
}

// Subject holds the clinical attributes of one person in the source population.
// Subjects are immutable once loaded.
type Subject struct {
	// ID is the subject identifier shared by all event tables (e.g. "PAT_1000").
	ID string `json:"id" yaml:"id"`

	// Age is the age in whole years. It is null when the source cell is
	// empty; such subjects never meet a minimum age.
	Age null.Int `json:"age" yaml:"age"`

	// Sex is M or F.
	Sex Sex `json:"sex" yaml:"sex"`

	// BMI is the body-mass index. It is null when the source cell is empty.
	BMI null.Float `json:"bmi" yaml:"bmi"`
}
