// Package prompt builds the user prompt sent to the completion endpoint.
package prompt

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/ashureev/macro-maker/internal/nutrition"
)

// SystemInstruction is the fixed system message for every completion.
const SystemInstruction = "You are a precise nutrition assistant."

// DefaultTemplatePath is the template location relative to the working directory.
const DefaultTemplatePath = "prompt/instructions.txt"

// Mode selects how the instruction text is produced.
type Mode string

const (
	// ModeTemplate loads instructions from a file and appends user stats and a calorie range.
	ModeTemplate Mode = "template"
	// ModeInline builds the full instruction text in code.
	ModeInline Mode = "inline"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTemplate, ModeInline:
		return m, nil
	default:
		return "", fmt.Errorf("unknown prompt mode %q", s)
	}
}

// ErrTemplateUnavailable wraps failures reading the template file.
var ErrTemplateUnavailable = errors.New("prompt template unavailable")

// Builder turns a profile into a user prompt.
type Builder struct {
	mode         Mode
	templatePath string
}

// NewBuilder creates a Builder. An empty templatePath falls back to DefaultTemplatePath.
func NewBuilder(mode Mode, templatePath string) *Builder {
	if templatePath == "" {
		templatePath = DefaultTemplatePath
	}
	return &Builder{mode: mode, templatePath: templatePath}
}

// Mode returns the configured mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// RequiresGender reports whether built prompts always carry a BMR.
func (b *Builder) RequiresGender() bool {
	return b.mode == ModeTemplate
}

// Build returns the prompt for p.
func (b *Builder) Build(p domain.UserProfile) (string, error) {
	if b.mode == ModeInline {
		return b.buildInline(p), nil
	}
	return b.buildFromTemplate(p)
}

// CheckTemplate verifies the template file can be read. Used by health checks.
func (b *Builder) CheckTemplate() error {
	if b.mode != ModeTemplate {
		return nil
	}
	_, err := b.loadTemplate()
	return err
}

// loadTemplate reads the file on every call so edits apply without a restart.
func (b *Builder) loadTemplate() (string, error) {
	data, err := os.ReadFile(b.templatePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplateUnavailable, err)
	}
	return string(data), nil
}

func (b *Builder) buildFromTemplate(p domain.UserProfile) (string, error) {
	base, err := b.loadTemplate()
	if err != nil {
		return "", err
	}

	bmr := nutrition.ProfileBMR(p)
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n")
	sb.WriteString(userStats(p, &bmr))
	sb.WriteString(calorieRangeLine(bmr, p.Goal))
	return sb.String(), nil
}

func (b *Builder) buildInline(p domain.UserProfile) string {
	var sb strings.Builder
	sb.WriteString("Create a one-day meal plan for the user described below.\n")
	sb.WriteString("Respond with a single JSON object and nothing else, exactly in this shape:\n")
	sb.WriteString(`{"meals": ["<meal>", "..."], "calories": <integer>, "protein": <integer>}`)
	sb.WriteString("\n\"meals\" lists each meal with its ingredients and portion sizes. ")
	sb.WriteString("\"calories\" is the total kcal and \"protein\" the total grams of protein, both whole numbers.\n")
	sb.WriteString("Prefer lean proteins (chicken, fish, eggs, Greek yogurt, tofu), complex carbohydrates ")
	sb.WriteString("(oats, rice, potatoes, whole-grain bread), vegetables, fruit and healthy fats (olive oil, nuts, avocado).\n")
	sb.WriteString("The ingredients within each meal must go together as a coherent dish; do not combine unrelated foods.\n")
	sb.WriteString("Exclude every ingredient the user is allergic to.\n")

	var bmr *float64
	if p.HasGender() {
		fmt.Fprintf(&sb, "Gender: %s.\n", p.Gender)
		v := nutrition.ProfileBMR(p)
		bmr = &v
	}
	sb.WriteString(userStats(p, bmr))
	if bmr != nil {
		sb.WriteString(calorieRangeLine(*bmr, p.Goal))
	}
	return sb.String()
}

func userStats(p domain.UserProfile, bmr *float64) string {
	bodyFat := "unknown"
	if p.BodyFat != nil {
		bodyFat = formatNumber(*p.BodyFat) + "%"
	}
	allergies := p.Allergies
	if allergies == "" {
		allergies = "none"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User stats: Age %d yrs, Height %s cm, Weight %s kg, Body fat %s",
		p.Age, formatNumber(p.HeightCm), formatNumber(p.WeightKg), bodyFat)
	if bmr != nil {
		fmt.Fprintf(&sb, ", BMR %d kcal/day", nutrition.Round(*bmr))
	}
	fmt.Fprintf(&sb, ", Goal: %s, Allergies: %s.", p.Goal, allergies)
	return sb.String()
}

func calorieRangeLine(bmr float64, goal domain.Goal) string {
	lo, hi := nutrition.CalorieRangeFor(bmr, goal).Rounded()
	return fmt.Sprintf("\nThe total calories for the meal plan must be between %d and %d kcal.", lo, hi)
}

// formatNumber prints at most two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
