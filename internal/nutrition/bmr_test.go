package nutrition

import (
	"testing"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEstimateBMRImperialBranches(t *testing.T) {
	t.Parallel()

	male := EstimateBMRImperial(domain.GenderMale, 180, 70, 30)
	assert.InDelta(t, (66+6.23*180+12.7*70-6.8*30)*1.5, male, 1e-9)

	female := EstimateBMRImperial(domain.GenderFemale, 140, 64, 30)
	assert.InDelta(t, (655+4.35*140+4.7*64-4.7*30)*1.5, female, 1e-9)
}

func TestEstimateBMRMetricMatchesImperial(t *testing.T) {
	t.Parallel()

	metric := EstimateBMR(domain.GenderMale, 80, 180, 25)
	imperial := EstimateBMRImperial(domain.GenderMale, 80*2.20462, 180/2.54, 25)
	assert.InDelta(t, imperial, metric, 1e-9)
}

func TestEstimateBMRScaledByActivityMultiplier(t *testing.T) {
	t.Parallel()

	got := EstimateBMRImperial(domain.GenderFemale, 150, 65, 40)
	unscaled := 655 + 4.35*150 + 4.7*65 - 4.7*40
	assert.InDelta(t, unscaled*1.5, got, 1e-9)
	assert.Equal(t, 1.5, ActivityMultiplier)
}

func TestEstimateBMRMonotonic(t *testing.T) {
	t.Parallel()

	for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
		base := EstimateBMR(g, 70, 170, 30)
		assert.Greater(t, EstimateBMR(g, 71, 170, 30), base, "weight %s", g)
		assert.Greater(t, EstimateBMR(g, 70, 171, 30), base, "height %s", g)
		assert.Less(t, EstimateBMR(g, 70, 170, 31), base, "age %s", g)
	}
}

func TestCalorieRangeFor(t *testing.T) {
	t.Parallel()

	const bmr = 2500.4
	tests := []struct {
		goal     domain.Goal
		min, max int
	}{
		{domain.GoalCut, 2000, 2150},
		{domain.GoalBulk, 2700, 3000},
		{domain.GoalMaintain, 2500, 2500},
		{"", 2500, 2500},
	}
	for _, tt := range tests {
		t.Run(string(tt.goal), func(t *testing.T) {
			lo, hi := CalorieRangeFor(bmr, tt.goal).Rounded()
			assert.Equal(t, tt.min, lo)
			assert.Equal(t, tt.max, hi)
		})
	}
}

func TestUnitConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 177.8, FeetInchesToCm(5, 10), 1e-9)
	assert.InDelta(t, 70, TotalInches(5, 10), 1e-9)
	assert.InDelta(t, 68.0388, PoundsToKg(150), 1e-9)
}
