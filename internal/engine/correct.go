package engine

import (
	"fmt"
	"log"
	"strings"

	"github.com/aetherlab/aether/internal/store"
)

// Action is the closed set of correction behaviors a rule may request.
type Action string

const (
	ActionReduceConcentration   Action = "reduce_concentration"
	ActionIncreaseConcentration Action = "increase_concentration"
	ActionBoostHighLogP         Action = "boost_high_logp"
	ActionReduceProportion      Action = "reduce_proportion"
	ActionFlagOxidationRisk     Action = "flag_oxidation_risk"
	ActionEliminateOrSubstitute Action = "eliminate_or_substitute"
)

const (
	defaultLogPThreshold    = 3.5
	defaultTargetProportion = 0.15
	oxidationFactor         = 0.9
)

// ApplyCorrections applies the applicable rules to the formula in store
// order. Effects compound: the same ingredient may be adjusted by several
// rules in sequence, and the total is not renormalized to 100% afterwards.
// Each rule that affected at least one ingredient appends one entry to the
// correction log.
func ApplyCorrections(f *Formula, rules []store.PhysioRule) {
	for _, rule := range rules {
		target := strings.ToLower(rule.Target)
		factor := 1.0
		if rule.Factor != nil {
			factor = *rule.Factor
		}

		var entry string
		switch Action(rule.Action) {
		case ActionReduceConcentration:
			entry = adjustByTarget(f, target, factor,
				fmt.Sprintf("Reduced %s (%s)", target, rule.Reasoning))
		case ActionIncreaseConcentration:
			entry = adjustByTarget(f, target, factor,
				fmt.Sprintf("Increased %s (%s)", target, rule.Reasoning))
		case ActionBoostHighLogP:
			threshold := defaultLogPThreshold
			if t, ok := rule.Threshold["logp"]; ok {
				threshold = t
			}
			entry = boostFixatives(f, threshold, factor)
		case ActionReduceProportion:
			targetProp := defaultTargetProportion
			if t, ok := rule.Threshold["target_proportion"]; ok {
				targetProp = t
			}
			entry = adjustNoteProportion(f, target, targetProp)
		case ActionFlagOxidationRisk:
			entry = flagOxidationRisk(f)
		case ActionEliminateOrSubstitute:
			entry = eliminateAllergen(f, target)
		default:
			// Unknown tags are a deliberate no-op so a rule-authoring typo
			// never aborts generation. Logged to keep the typo visible.
			log.Printf("correction: rule %s has unknown action %q, skipped", rule.ID, rule.Action)
		}

		if entry != "" {
			f.Corrections = append(f.Corrections, entry)
		}
	}
}

// adjustByTarget scales every ingredient whose family, note type, or name
// contains the target string.
func adjustByTarget(f *Formula, target string, factor float64, reason string) string {
	adjusted := 0
	for i := range f.Ingredients {
		ing := f.Ingredients[i].Ingredient
		if strings.Contains(strings.ToLower(ing.Family), target) ||
			strings.Contains(strings.ToLower(ing.NoteType), target) ||
			strings.Contains(strings.ToLower(ing.Name), target) {
			f.Ingredients[i].Concentration *= factor
			f.Ingredients[i].Adjusted = true
			f.Ingredients[i].AdjustmentReason = reason
			adjusted++
		}
	}
	if adjusted == 0 {
		return ""
	}
	return fmt.Sprintf("%s - affected %d ingredient(s)", reason, adjusted)
}

// boostFixatives scales every ingredient at or above the logP threshold.
func boostFixatives(f *Formula, logpThreshold, factor float64) string {
	var boosted []string
	for i := range f.Ingredients {
		if f.Ingredients[i].Ingredient.LogP >= logpThreshold {
			f.Ingredients[i].Concentration *= factor
			f.Ingredients[i].Adjusted = true
			f.Ingredients[i].AdjustmentReason = "Boosted for dry skin retention"
			boosted = append(boosted, f.Ingredients[i].Ingredient.Name)
		}
	}
	if len(boosted) == 0 {
		return ""
	}
	return fmt.Sprintf("Boosted fixatives (LogP>%g): %s", logpThreshold, strings.Join(boosted, ", "))
}

// adjustNoteProportion scales a note type down to its target share of the
// total. Already at or below target is a no-op.
func adjustNoteProportion(f *Formula, noteTarget string, targetProportion float64) string {
	noteKey := strings.TrimSpace(strings.TrimSuffix(noteTarget, " notes"))
	current := NotePyramid(f.Ingredients).ByNote(noteKey) / 100

	if current <= targetProportion || current == 0 {
		return ""
	}

	reduction := targetProportion / current
	for i := range f.Ingredients {
		if strings.Contains(noteTarget, strings.ToLower(f.Ingredients[i].Ingredient.NoteType)) {
			f.Ingredients[i].Concentration *= reduction
			f.Ingredients[i].Adjusted = true
		}
	}
	return fmt.Sprintf("Reduced %s proportion from %.0f%% to %.0f%%",
		noteTarget, current*100, targetProportion*100)
}

// flagOxidationRisk reduces every citrus-family ingredient by a fixed
// factor, a caution for terpene oxidation on oily skin.
func flagOxidationRisk(f *Formula) string {
	var flagged []string
	for i := range f.Ingredients {
		if strings.Contains(strings.ToLower(f.Ingredients[i].Ingredient.Family), "citrus") {
			f.Ingredients[i].Concentration *= oxidationFactor
			f.Ingredients[i].Adjusted = true
			f.Ingredients[i].AdjustmentReason = "Reduced due to squalene oxidation risk"
			flagged = append(flagged, f.Ingredients[i].Ingredient.Name)
		}
	}
	if len(flagged) == 0 {
		return ""
	}
	return "Reduced oxidation-prone ingredients: " + strings.Join(flagged, ", ")
}

// eliminateAllergen removes every ingredient whose name contains the
// allergen token. Two passes: collect removals, then rebuild the retained
// list, so removal and logging stay independent.
func eliminateAllergen(f *Formula, allergen string) string {
	var removed []string
	for _, fi := range f.Ingredients {
		if strings.Contains(strings.ToLower(fi.Ingredient.Name), allergen) {
			removed = append(removed, fi.Ingredient.Name)
		}
	}
	if len(removed) == 0 {
		return ""
	}

	retained := f.Ingredients[:0:0]
	for _, fi := range f.Ingredients {
		if !strings.Contains(strings.ToLower(fi.Ingredient.Name), allergen) {
			retained = append(retained, fi)
		}
	}
	f.Ingredients = retained

	return fmt.Sprintf("Eliminated allergen %s: %s", allergen, strings.Join(removed, ", "))
}
