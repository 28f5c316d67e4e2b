package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aetherlab/aether/internal/store"
)

// Slot concentrations by note position. Pools shorter than the slot list
// simply contribute fewer entries; unused percentage is not redistributed.
var (
	topSlots    = []float64{10.0, 8.0}
	middleSlots = []float64{12.0, 11.0, 10.0}
	baseSlots   = []float64{15.0, 13.0, 11.0}
)

// buildBaseline constructs a baseline formula from the catalog, before any
// physiological corrections are applied.
func (e *Engine) buildBaseline(profile UserProfile, preferences []string, valence, arousal *float64) (*Formula, error) {
	safe, err := e.db.SafeForAllergies(profile.Allergies)
	if err != nil {
		return nil, fmt.Errorf("filter catalog for allergies: %w", err)
	}

	var top, middle, base []store.Ingredient
	for _, ing := range safe {
		switch ing.NoteType {
		case "top":
			top = append(top, ing)
		case "middle":
			middle = append(middle, ing)
		case "base":
			base = append(base, ing)
		}
	}

	if len(preferences) > 0 {
		top = filterByPreferences(top, preferences)
		middle = filterByPreferences(middle, preferences)
		base = filterByPreferences(base, preferences)
	}

	formula := &Formula{
		ID:            uuid.NewString(),
		Name:          "Aether Creation",
		IFRACompliant: true,
	}

	if valence != nil && arousal != nil {
		formula.Description = vaDescription(*valence, *arousal)
		switch {
		case *valence > 0.3 && *arousal > 0.5:
			top = biasPool(top, func(ing store.Ingredient) bool {
				return strings.Contains(strings.ToLower(ing.Family), "citrus") || descriptorsContain(ing, "fresh")
			}, 2)
		case *valence > 0.3 && *arousal <= 0.5:
			base = biasPool(base, func(ing store.Ingredient) bool {
				return strings.Contains(strings.ToLower(ing.Family), "woody")
			}, 3)
		}
	}

	appendSlots(formula, top, topSlots)
	appendSlots(formula, middle, middleSlots)
	appendSlots(formula, base, baseSlots)

	return formula, nil
}

func appendSlots(f *Formula, pool []store.Ingredient, slots []float64) {
	for i, conc := range slots {
		if i >= len(pool) {
			break
		}
		f.Ingredients = append(f.Ingredients, FormulaIngredient{
			Ingredient:    pool[i],
			Concentration: conc,
		})
	}
}

// filterByPreferences keeps ingredients whose family or any descriptor
// contains a preference token, case-insensitively. An empty filtered result
// reverts to the unfiltered pool: a preference miss never empties a pool.
func filterByPreferences(pool []store.Ingredient, preferences []string) []store.Ingredient {
	var matched []store.Ingredient
	for _, ing := range pool {
		family := strings.ToLower(ing.Family)
		for _, pref := range preferences {
			token := strings.ToLower(pref)
			if strings.Contains(family, token) || descriptorsContain(ing, token) {
				matched = append(matched, ing)
				break
			}
		}
	}
	if len(matched) == 0 {
		return pool
	}
	return matched
}

// biasPool filters a pool by predicate and truncates to max; if the bias
// yields nothing, the first max unfiltered candidates are used instead.
func biasPool(pool []store.Ingredient, keep func(store.Ingredient) bool, max int) []store.Ingredient {
	var biased []store.Ingredient
	for _, ing := range pool {
		if keep(ing) {
			biased = append(biased, ing)
		}
	}
	if len(biased) > max {
		biased = biased[:max]
	}
	if len(biased) == 0 {
		if len(pool) > max {
			return pool[:max]
		}
		return pool
	}
	return biased
}

func descriptorsContain(ing store.Ingredient, token string) bool {
	for _, d := range ing.Descriptors {
		if strings.Contains(strings.ToLower(d), token) {
			return true
		}
	}
	return false
}

// vaDescription maps the valence/arousal quadrant to a fixed description.
func vaDescription(valence, arousal float64) string {
	if valence > 0.3 {
		if arousal > 0.5 {
			return "An energizing blend that uplifts and invigorates"
		}
		return "A serene composition for peaceful moments"
	}
	if arousal > 0.5 {
		return "A bold and intense sensory experience"
	}
	return "A grounding and contemplative fragrance"
}
