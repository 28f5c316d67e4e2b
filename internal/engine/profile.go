package engine

// Skin types accepted in a user profile.
const (
	SkinDry    = "Dry"
	SkinNormal = "Normal"
	SkinOily   = "Oily"
)

// UserProfile is a per-request physiological profile. The engine never
// persists or shares it; each request owns its own copy.
type UserProfile struct {
	ID          string   `json:"profile_id,omitempty"`
	PH          float64  `json:"ph"`
	SkinType    string   `json:"skin_type"` // Dry, Normal, Oily
	Temperature float64  `json:"temperature"`
	Allergies   []string `json:"allergies"`
}

// Values returns the profile as a parameter map keyed the way rule
// conditions name their parameters. A rule whose parameter is not a key
// here never matches.
func (p UserProfile) Values() map[string]any {
	return map[string]any{
		"ph":          p.PH,
		"skin_type":   p.SkinType,
		"temperature": p.Temperature,
		"allergies":   p.Allergies,
	}
}

// PHCategory classifies a skin pH reading and returns formulation
// recommendations for that range.
func PHCategory(ph float64) (string, []string) {
	switch {
	case ph < 4.5:
		return "acidic", []string{
			"Reduce aldehyde concentration by 15%",
			"Add pH buffer agents",
			"Substitute with acetal derivatives for stability",
		}
	case ph > 6.0:
		return "alkaline", []string{
			"Increase floral core concentration by 20%",
			"Add mild acidic modifiers",
			"Monitor for saponification reactions",
		}
	default:
		return "optimal", []string{
			"Standard formulation parameters apply",
			"No pH-related adjustments needed",
		}
	}
}

// TemperatureCategory classifies a body temperature reading and returns
// volatility recommendations for that range.
func TemperatureCategory(temp float64) (string, []string) {
	switch {
	case temp > 37.2:
		return "warm", []string{
			"Reduce top note ratio (front-heavy burn-off risk)",
			"Use higher molecular weight substitutes",
			"Increase fixative base proportion",
		}
	case temp < 36.0:
		return "cool", []string{
			"Increase top note volatility",
			"Reduce heavy base notes",
			"Adjust for reduced diffusion",
		}
	default:
		return "normal", []string{
			"Standard volatility curve applies",
		}
	}
}

// SkinTypeAdjustments returns formulation recommendations for a skin type.
func SkinTypeAdjustments(skinType string) []string {
	switch skinType {
	case SkinDry:
		return []string{
			"Increase high-LogP fixatives by 25%",
			"Add molecular encapsulation for longevity",
			"Boost base notes proportion",
		}
	case SkinOily:
		return []string{
			"Increase top note volatility",
			"Reduce heavy base notes",
			"Monitor for terpene oxidation with squalene",
		}
	default:
		return []string{"Standard lipid balance formula"}
	}
}
