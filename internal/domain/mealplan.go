package domain

// MealPlan is a generated daily meal plan.
type MealPlan struct {
	Meals    []string `json:"meals"`
	Calories int      `json:"calories"`
	Protein  int      `json:"protein"`
}
