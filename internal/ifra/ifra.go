// Package ifra checks finished formulas against a simplified subset of the
// IFRA (International Fragrance Association) Category 4 limits: total
// declared-allergen load, restricted materials, and per-ingredient
// concentration ceilings.
package ifra

import (
	"fmt"
	"strings"

	"github.com/aetherlab/aether/internal/engine"
)

// MaxAllergenTotal is the combined concentration limit, in percent, for
// declared allergens in a fine-fragrance formula.
const MaxAllergenTotal = 1.0

// Oakmoss extract is restricted far below the general allergen limit.
const maxOakmossConcentration = 0.1

// Any single ingredient above this share of the formula gets a warning.
const maxSingleIngredient = 20.0

// EU-declarable allergen name tokens relevant to this catalog.
var allergenTokens = []string{"linalool", "citral", "limonene", "geraniol", "eugenol"}

// Result is the outcome of a compliance check. Violations make the formula
// non-compliant; warnings do not.
type Result struct {
	Compliant        bool     `json:"compliant"`
	Violations       []string `json:"violations"`
	Warnings         []string `json:"warnings"`
	AllergenTotal    float64  `json:"allergen_total"`
	MaxAllergenLimit float64  `json:"max_allergen_limit"`
}

// Validate checks a formula's ingredient list. Matching is by ingredient
// name token, so "Linalool (synthetic)" counts toward the linalool load.
func Validate(ingredients []engine.FormulaIngredient) Result {
	res := Result{
		Compliant:        true,
		Violations:       []string{},
		Warnings:         []string{},
		MaxAllergenLimit: MaxAllergenTotal,
	}

	for _, fi := range ingredients {
		name := strings.ToLower(fi.Ingredient.Name)

		for _, token := range allergenTokens {
			if strings.Contains(name, token) {
				res.AllergenTotal += fi.Concentration
				break
			}
		}

		if strings.Contains(name, "oakmoss") && fi.Concentration > maxOakmossConcentration {
			res.Violations = append(res.Violations, fmt.Sprintf(
				"%s at %.2f%% exceeds the %.1f%% oakmoss restriction",
				fi.Ingredient.Name, fi.Concentration, maxOakmossConcentration))
		}

		if fi.Concentration > maxSingleIngredient {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%s at %.2f%% exceeds the typical %.0f%% single-ingredient ceiling",
				fi.Ingredient.Name, fi.Concentration, maxSingleIngredient))
		}
	}

	if res.AllergenTotal > MaxAllergenTotal {
		res.Violations = append(res.Violations, fmt.Sprintf(
			"total declared allergens %.2f%% exceed the %.1f%% limit",
			res.AllergenTotal, MaxAllergenTotal))
	}

	res.Compliant = len(res.Violations) == 0
	return res
}
