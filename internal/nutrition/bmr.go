// Package nutrition implements the metabolic-rate estimate, goal-based calorie
// ranges and the unit conversions used by the form.
package nutrition

import (
	"math"

	"github.com/ashureev/macro-maker/internal/domain"
)

// ActivityMultiplier scales the Harris-Benedict BMR to a daily maintenance estimate.
const ActivityMultiplier = 1.5

const (
	poundsPerKg    = 2.20462
	kgPerPound     = 0.453592
	cmPerInch      = 2.54
	inchesPerFoot  = 12
	cutLowerDelta  = -500
	cutUpperDelta  = -350
	bulkLowerDelta = 200
	bulkUpperDelta = 500
)

// EstimateBMR returns the activity-scaled Harris-Benedict estimate for metric inputs.
// Any gender other than male takes the female branch.
func EstimateBMR(gender domain.Gender, weightKg, heightCm float64, age int) float64 {
	return EstimateBMRImperial(gender, weightKg*poundsPerKg, heightCm/cmPerInch, age)
}

// EstimateBMRImperial is EstimateBMR for pounds and inches.
func EstimateBMRImperial(gender domain.Gender, weightLbs, heightIn float64, age int) float64 {
	a := float64(age)
	if gender == domain.GenderMale {
		return (66 + 6.23*weightLbs + 12.7*heightIn - 6.8*a) * ActivityMultiplier
	}
	return (655 + 4.35*weightLbs + 4.7*heightIn - 4.7*a) * ActivityMultiplier
}

// ProfileBMR is EstimateBMR applied to a validated profile.
func ProfileBMR(p domain.UserProfile) float64 {
	return EstimateBMR(p.Gender, p.WeightKg, p.HeightCm, p.Age)
}

// CalorieRange is an inclusive daily calorie target.
type CalorieRange struct {
	Min float64
	Max float64
}

// CalorieRangeFor derives the target range from a BMR and goal.
func CalorieRangeFor(bmr float64, goal domain.Goal) CalorieRange {
	switch goal {
	case domain.GoalCut:
		return CalorieRange{Min: bmr + cutLowerDelta, Max: bmr + cutUpperDelta}
	case domain.GoalBulk:
		return CalorieRange{Min: bmr + bulkLowerDelta, Max: bmr + bulkUpperDelta}
	default:
		return CalorieRange{Min: bmr, Max: bmr}
	}
}

// Rounded returns both bounds rounded to the nearest kcal.
func (r CalorieRange) Rounded() (int, int) {
	return Round(r.Min), Round(r.Max)
}

// Round rounds a kcal value for display.
func Round(v float64) int {
	return int(math.Round(v))
}

// FeetInchesToCm converts a feet + inches height to centimeters.
func FeetInchesToCm(feet, inches float64) float64 {
	return TotalInches(feet, inches) * cmPerInch
}

// TotalInches converts a feet + inches height to inches.
func TotalInches(feet, inches float64) float64 {
	return feet*inchesPerFoot + inches
}

// PoundsToKg converts pounds to kilograms.
func PoundsToKg(lbs float64) float64 {
	return lbs * kgPerPound
}
