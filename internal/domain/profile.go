// Package domain contains core domain types for the Macro Maker application.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Gender selects the BMR formula branch.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Goal is the user's body composition goal.
type Goal string

const (
	GoalCut      Goal = "cut"
	GoalMaintain Goal = "maintain"
	GoalBulk     Goal = "bulk"
)

// Valid reports whether g is a known goal. The empty goal is valid and means maintain.
func (g Goal) Valid() bool {
	switch g {
	case "", GoalCut, GoalMaintain, GoalBulk:
		return true
	}
	return false
}

// OrDefault returns maintain for the empty goal.
func (g Goal) OrDefault() Goal {
	if g == "" {
		return GoalMaintain
	}
	return g
}

// ErrBadRequest is matched by every ValidationError via errors.Is.
var ErrBadRequest = errors.New("bad request")

// ValidationError describes a single invalid profile field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrBadRequest) true for validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrBadRequest
}

// ProfileRequest is the JSON body accepted by the nutrition endpoint.
type ProfileRequest struct {
	Gender    Gender   `json:"gender,omitempty"`
	Age       *float64 `json:"age"`
	Height    *float64 `json:"height"`
	Weight    *float64 `json:"weight"`
	BodyFat   *float64 `json:"bodyFat,omitempty"`
	Goal      Goal     `json:"goal,omitempty"`
	Allergies string   `json:"allergies,omitempty"`
}

// UserProfile is a validated, per-request set of body metrics.
type UserProfile struct {
	Gender    Gender
	Age       int
	HeightCm  float64
	WeightKg  float64
	BodyFat   *float64
	Goal      Goal
	Allergies string
}

// HasGender reports whether the profile carries a gender, which the BMR needs.
func (p UserProfile) HasGender() bool {
	return p.Gender != ""
}

// Validate checks the request and converts it into a UserProfile.
// requireGender is set when the caller will compute a BMR.
func (r ProfileRequest) Validate(requireGender bool) (UserProfile, error) {
	var p UserProfile

	gender := Gender(strings.ToLower(strings.TrimSpace(string(r.Gender))))
	switch {
	case gender == "" && requireGender:
		return p, &ValidationError{Field: "gender", Reason: "is required"}
	case gender != "" && !gender.Valid():
		return p, &ValidationError{Field: "gender", Reason: "must be male or female"}
	}

	age, err := positive("age", r.Age)
	if err != nil {
		return p, err
	}
	if age != math.Trunc(age) {
		return p, &ValidationError{Field: "age", Reason: "must be a whole number of years"}
	}
	height, err := positive("height", r.Height)
	if err != nil {
		return p, err
	}
	weight, err := positive("weight", r.Weight)
	if err != nil {
		return p, err
	}

	if r.BodyFat != nil {
		bf := *r.BodyFat
		if math.IsNaN(bf) || bf < 0 || bf > 100 {
			return p, &ValidationError{Field: "bodyFat", Reason: "must be between 0 and 100"}
		}
	}

	goal := Goal(strings.ToLower(strings.TrimSpace(string(r.Goal))))
	if !goal.Valid() {
		return p, &ValidationError{Field: "goal", Reason: "must be cut, maintain or bulk"}
	}

	return UserProfile{
		Gender:    gender,
		Age:       int(age),
		HeightCm:  height,
		WeightKg:  weight,
		BodyFat:   r.BodyFat,
		Goal:      goal.OrDefault(),
		Allergies: strings.TrimSpace(r.Allergies),
	}, nil
}

func positive(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, &ValidationError{Field: field, Reason: "is required"}
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, &ValidationError{Field: field, Reason: "must be a positive number"}
	}
	return *v, nil
}
