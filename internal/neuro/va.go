package neuro

// ScentMapping links a region of valence/arousal space to recommended
// scent characteristics.
type ScentMapping struct {
	Families            []string           `json:"families"`
	Descriptors         []string           `json:"descriptors"`
	NoteDistribution    map[string]float64 `json:"note_distribution"`
	Intensity           string             `json:"intensity"`            // "light", "moderate", "intense"
	LongevityPreference string             `json:"longevity_preference"` // "short", "medium", "long"
}

// Quadrant names for the circumplex model, plus a neutral center zone.
const (
	QuadrantHighValenceHighArousal = "high_valence_high_arousal"
	QuadrantHighValenceLowArousal  = "high_valence_low_arousal"
	QuadrantLowValenceLowArousal   = "low_valence_low_arousal"
	QuadrantLowValenceHighArousal  = "low_valence_high_arousal"
	QuadrantNeutral                = "neutral"
)

// Quadrant mappings based on fragrance psychology research.
var scentMappings = map[string]ScentMapping{
	QuadrantHighValenceHighArousal: {
		Families:            []string{"citrus", "fresh", "fruity", "aromatic"},
		Descriptors:         []string{"bright", "sparkling", "energizing", "zesty", "effervescent"},
		NoteDistribution:    map[string]float64{"top": 0.35, "middle": 0.40, "base": 0.25},
		Intensity:           "moderate",
		LongevityPreference: "medium",
	},
	QuadrantHighValenceLowArousal: {
		Families:            []string{"woody", "floral", "musky", "powdery"},
		Descriptors:         []string{"soft", "warm", "comforting", "cozy", "serene"},
		NoteDistribution:    map[string]float64{"top": 0.20, "middle": 0.35, "base": 0.45},
		Intensity:           "light",
		LongevityPreference: "long",
	},
	QuadrantLowValenceLowArousal: {
		Families:            []string{"resinous", "ambery", "earthy", "leather"},
		Descriptors:         []string{"grounding", "contemplative", "deep", "meditative"},
		NoteDistribution:    map[string]float64{"top": 0.15, "middle": 0.30, "base": 0.55},
		Intensity:           "moderate",
		LongevityPreference: "long",
	},
	QuadrantLowValenceHighArousal: {
		Families:            []string{"herbal", "green", "aquatic", "ozonic"},
		Descriptors:         []string{"clean", "crisp", "refreshing", "calming", "balancing"},
		NoteDistribution:    map[string]float64{"top": 0.30, "middle": 0.40, "base": 0.30},
		Intensity:           "light",
		LongevityPreference: "medium",
	},
	QuadrantNeutral: {
		Families:            []string{"woody", "aromatic", "floral"},
		Descriptors:         []string{"balanced", "versatile", "classic", "elegant"},
		NoteDistribution:    map[string]float64{"top": 0.25, "middle": 0.40, "base": 0.35},
		Intensity:           "moderate",
		LongevityPreference: "medium",
	},
}

const (
	arousalThreshold = 0.5
	valenceThreshold = 0.15 // slightly wider neutral zone
)

// QuadrantFor determines the circumplex quadrant for VA coordinates.
func QuadrantFor(valence, arousal float64) string {
	if valence > -valenceThreshold && valence < valenceThreshold {
		return QuadrantNeutral
	}
	if valence > 0 {
		if arousal > arousalThreshold {
			return QuadrantHighValenceHighArousal
		}
		return QuadrantHighValenceLowArousal
	}
	if arousal > arousalThreshold {
		return QuadrantLowValenceHighArousal
	}
	return QuadrantLowValenceLowArousal
}

// MappingFor returns the scent mapping for VA coordinates.
func MappingFor(valence, arousal float64) ScentMapping {
	return scentMappings[QuadrantFor(valence, arousal)]
}

// Blend mixes two scent mappings for intermediate VA positions: the top
// families and descriptors of both, note distributions weighted by ratio,
// and the primary's discrete attributes.
func Blend(primary, secondary ScentMapping, ratio float64) ScentMapping {
	families := uniqueUnion(firstN(primary.Families, 3), firstN(secondary.Families, 2))
	descriptors := uniqueUnion(firstN(primary.Descriptors, 3), firstN(secondary.Descriptors, 2))

	dist := make(map[string]float64, 3)
	for _, note := range []string{"top", "middle", "base"} {
		dist[note] = primary.NoteDistribution[note]*ratio + secondary.NoteDistribution[note]*(1-ratio)
	}

	return ScentMapping{
		Families:            families,
		Descriptors:         descriptors,
		NoteDistribution:    dist,
		Intensity:           primary.Intensity,
		LongevityPreference: primary.LongevityPreference,
	}
}

func firstN(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func uniqueUnion(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
