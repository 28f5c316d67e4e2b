package engine

import (
	"github.com/aetherlab/aether/internal/store"
)

// FormulaIngredient is one catalog ingredient placed in a formula at a
// concentration. Concentration is the only field corrections may mutate;
// removing the whole entry is the only other permitted change.
type FormulaIngredient struct {
	Ingredient       store.Ingredient `json:"ingredient"`
	Concentration    float64          `json:"concentration"`
	Adjusted         bool             `json:"adjusted"`
	AdjustmentReason string           `json:"adjustment_reason,omitempty"`
}

// Formula is a complete perfume formula. It is created per request, owned
// by that request's call chain, and discarded after the response.
type Formula struct {
	ID                  string              `json:"formula_id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Ingredients         []FormulaIngredient `json:"ingredients"`
	Corrections         []string            `json:"corrections_applied"`
	SustainabilityScore float64             `json:"sustainability_score"`
	NotePyramid         Pyramid             `json:"note_pyramid"`
	IFRACompliant       bool                `json:"ifra_compliant"`
}

// NotesByType returns the formula entries for one note type.
func (f *Formula) NotesByType(noteType string) []FormulaIngredient {
	var out []FormulaIngredient
	for _, fi := range f.Ingredients {
		if fi.Ingredient.NoteType == noteType {
			out = append(out, fi)
		}
	}
	return out
}
