package engine

import (
	"math"
	"strings"
)

// Pyramid is the percentage share of total concentration per note type.
// The three values sum to 100 (within rounding) whenever the formula has
// any concentration at all, and are all zero for an empty formula.
type Pyramid struct {
	Top    float64 `json:"top"`
	Middle float64 `json:"middle"`
	Base   float64 `json:"base"`
}

// ByNote returns the share for a note type name.
func (p Pyramid) ByNote(noteType string) float64 {
	switch noteType {
	case "top":
		return p.Top
	case "middle":
		return p.Middle
	case "base":
		return p.Base
	}
	return 0
}

// NotePyramid computes note-type proportions from final concentrations.
func NotePyramid(ingredients []FormulaIngredient) Pyramid {
	var top, middle, base float64
	for _, fi := range ingredients {
		// Store-backed catalogs are always lowercase; formulas assembled
		// by hand may not be.
		switch strings.ToLower(fi.Ingredient.NoteType) {
		case "top":
			top += fi.Concentration
		case "middle":
			middle += fi.Concentration
		case "base":
			base += fi.Concentration
		}
	}

	total := top + middle + base
	if total == 0 {
		return Pyramid{}
	}
	return Pyramid{
		Top:    round1(100 * top / total),
		Middle: round1(100 * middle / total),
		Base:   round1(100 * base / total),
	}
}

// SustainabilityScore is the concentration-weighted mean of the catalog
// sustainability scores, using post-correction concentrations. Zero for an
// empty formula.
func SustainabilityScore(ingredients []FormulaIngredient) float64 {
	var weighted, total float64
	for _, fi := range ingredients {
		weighted += float64(fi.Ingredient.SustainabilityScore) * fi.Concentration
		total += fi.Concentration
	}
	if total == 0 {
		return 0
	}
	return round1(weighted / total)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
