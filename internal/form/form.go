// Package form implements the server-rendered meal-plan form: field parsing,
// unit conversion and the local maintenance estimate.
package form

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/ashureev/macro-maker/internal/nutrition"
)

// Mode selects the units the form collects.
type Mode string

const (
	// ModeImperial collects feet/inches and pounds.
	ModeImperial Mode = "imperial"
	// ModeMetric collects centimeters and kilograms.
	ModeMetric Mode = "metric"
)

// ParseMode validates a configured unit mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeImperial, ModeMetric:
		return m, nil
	default:
		return "", fmt.Errorf("unknown form units %q", s)
	}
}

// Field names, shared with the HTML template.
const (
	FieldGender    = "gender"
	FieldAge       = "age"
	FieldHeightFt  = "heightFt"
	FieldHeightIn  = "heightIn"
	FieldWeightLbs = "weightLbs"
	FieldHeightCm  = "heightCm"
	FieldWeightKg  = "weightKg"
	FieldBodyFat   = "bodyFat"
	FieldGoal      = "goal"
	FieldAllergies = "allergies"
)

// Values holds raw form field values keyed by field name.
type Values map[string]string

// DefaultValues is the initial state of a fresh form.
func DefaultValues() Values {
	return Values{
		FieldGender: string(domain.GenderMale),
		FieldGoal:   string(domain.GoalCut),
	}
}

// FromURLValues copies the first value of each known field.
func FromURLValues(in url.Values) Values {
	v := DefaultValues()
	for _, k := range []string{
		FieldGender, FieldAge, FieldHeightFt, FieldHeightIn, FieldWeightLbs,
		FieldHeightCm, FieldWeightKg, FieldBodyFat, FieldGoal, FieldAllergies,
	} {
		if _, ok := in[k]; ok {
			v[k] = strings.TrimSpace(in.Get(k))
		}
	}
	return v
}

// Get returns the value for key, or "".
func (v Values) Get(key string) string {
	return v[key]
}

// Submission is a parsed form ready to send to the planner.
type Submission struct {
	Request domain.ProfileRequest
	// MaintenanceBMR is the local estimate; nil when gender is unknown.
	MaintenanceBMR *float64
}

// Parse validates the required numeric fields, converts imperial units to
// metric and computes the local maintenance estimate.
func Parse(v Values, mode Mode) (Submission, error) {
	var sub Submission

	age, err := requiredNumber(v, FieldAge, false)
	if err != nil {
		return sub, err
	}
	if age != math.Trunc(age) {
		return sub, &domain.ValidationError{Field: FieldAge, Reason: "must be a whole number"}
	}

	var heightCm, weightKg, heightIn, weightLbs float64
	switch mode {
	case ModeMetric:
		if heightCm, err = requiredNumber(v, FieldHeightCm, false); err != nil {
			return sub, err
		}
		if weightKg, err = requiredNumber(v, FieldWeightKg, false); err != nil {
			return sub, err
		}
	default:
		feet, err := requiredNumber(v, FieldHeightFt, true)
		if err != nil {
			return sub, err
		}
		inches, err := requiredNumber(v, FieldHeightIn, true)
		if err != nil {
			return sub, err
		}
		if inches > 11 {
			return sub, &domain.ValidationError{Field: FieldHeightIn, Reason: "must be between 0 and 11"}
		}
		heightIn = nutrition.TotalInches(feet, inches)
		if heightIn <= 0 {
			return sub, &domain.ValidationError{Field: FieldHeightFt, Reason: "height must be greater than zero"}
		}
		if weightLbs, err = requiredNumber(v, FieldWeightLbs, false); err != nil {
			return sub, err
		}
		heightCm = nutrition.FeetInchesToCm(feet, inches)
		weightKg = nutrition.PoundsToKg(weightLbs)
	}

	var bodyFat *float64
	if raw := v.Get(FieldBodyFat); raw != "" {
		bf, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(bf) || bf < 0 || bf > 100 {
			return sub, &domain.ValidationError{Field: FieldBodyFat, Reason: "must be a number between 0 and 100"}
		}
		bodyFat = &bf
	}

	gender := domain.Gender(v.Get(FieldGender))
	sub.Request = domain.ProfileRequest{
		Gender:    gender,
		Age:       &age,
		Height:    &heightCm,
		Weight:    &weightKg,
		BodyFat:   bodyFat,
		Goal:      domain.Goal(v.Get(FieldGoal)),
		Allergies: v.Get(FieldAllergies),
	}

	if gender.Valid() {
		var bmr float64
		if mode == ModeMetric {
			bmr = nutrition.EstimateBMR(gender, weightKg, heightCm, int(age))
		} else {
			bmr = nutrition.EstimateBMRImperial(gender, weightLbs, heightIn, int(age))
		}
		sub.MaintenanceBMR = &bmr
	}
	return sub, nil
}

// requiredNumber parses a present numeric field. allowZero permits 0 (feet, inches).
func requiredNumber(v Values, field string, allowZero bool) (float64, error) {
	raw := v.Get(field)
	if raw == "" {
		return 0, &domain.ValidationError{Field: field, Reason: "is required"}
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &domain.ValidationError{Field: field, Reason: "must be a number"}
	}
	if n < 0 || (n == 0 && !allowZero) {
		return 0, &domain.ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return n, nil
}
