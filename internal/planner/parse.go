package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ashureev/macro-maker/internal/domain"
)

// ErrInvalidOutput is returned when the model text holds no usable meal plan.
var ErrInvalidOutput = errors.New("invalid JSON from AI")

// objectPattern matches from the first '{' to the last '}', across newlines.
var objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

var errMissingField = errors.New("missing field")

// wirePlan uses pointers so absent fields can be told apart from zero values.
type wirePlan struct {
	Meals    *[]string `json:"meals"`
	Calories *int      `json:"calories"`
	Protein  *int      `json:"protein"`
}

// ParsePlan extracts a MealPlan from model output. The trimmed text is parsed
// directly first; on failure the first greedy brace-delimited substring is
// parsed instead. Both failing yields ErrInvalidOutput.
func ParsePlan(raw string) (*domain.MealPlan, error) {
	raw = strings.TrimSpace(raw)

	plan, err := decodePlan([]byte(raw))
	if err == nil {
		return plan, nil
	}

	match := objectPattern.FindString(raw)
	if match == "" {
		return nil, ErrInvalidOutput
	}
	plan, err = decodePlan([]byte(match))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return plan, nil
}

// decodePlan accepts exactly one object with meals, calories and protein and nothing else.
func decodePlan(data []byte) (*domain.MealPlan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wirePlan
	if err := dec.Decode(&w); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after plan object")
	}

	switch {
	case w.Meals == nil || *w.Meals == nil:
		return nil, fmt.Errorf("%w: meals", errMissingField)
	case w.Calories == nil:
		return nil, fmt.Errorf("%w: calories", errMissingField)
	case w.Protein == nil:
		return nil, fmt.Errorf("%w: protein", errMissingField)
	}

	return &domain.MealPlan{
		Meals:    *w.Meals,
		Calories: *w.Calories,
		Protein:  *w.Protein,
	}, nil
}
