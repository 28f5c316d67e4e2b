// Package molecular provides coarse molecular property estimates from
// SMILES structure strings. The estimates are opportunistic enrichment for
// catalog data: when a structure cannot be parsed the result is marked
// unavailable rather than returned as an error, and formula generation
// never depends on a live estimate.
package molecular

import (
	"math"
	"strings"
)

// Properties holds estimated molecular properties for a structure. When
// Valid is false the numeric fields are meaningless and Reason says why.
type Properties struct {
	SMILES                 string  `json:"smiles"`
	Valid                  bool    `json:"valid"`
	LogP                   float64 `json:"logp,omitempty"`
	MolecularWeight        float64 `json:"molecular_weight,omitempty"`
	EstimatedVaporPressure float64 `json:"estimated_vapor_pressure,omitempty"`
	VolatilityClass        string  `json:"volatility_class,omitempty"` // "high", "medium", "low"
	Reason                 string  `json:"reason,omitempty"`
}

var atomicMass = map[string]float64{
	"C": 12.011, "N": 14.007, "O": 15.999, "S": 32.06, "P": 30.974,
	"F": 18.998, "Cl": 35.45, "Br": 79.904, "I": 126.904,
}

// composition is a parsed atom inventory with unsaturation bookkeeping.
type composition struct {
	counts        map[string]int
	aromaticAtoms int
	doubleBonds   int
	tripleBonds   int
	rings         int
}

// Estimate computes properties at 25°C.
func Estimate(smiles string) Properties {
	return EstimateAt(smiles, 25.0)
}

// EstimateAt computes properties at the given temperature in Celsius.
func EstimateAt(smiles string, temperatureC float64) Properties {
	if strings.TrimSpace(smiles) == "" {
		return Properties{SMILES: smiles, Reason: "empty structure string"}
	}

	comp, ok := parseSMILES(smiles)
	if !ok || comp.counts["C"] == 0 {
		return Properties{SMILES: smiles, Reason: "unparseable structure"}
	}

	mw := molecularWeight(comp)
	logp := estimateLogP(comp)
	vp := vaporPressure(mw, logp, temperatureC)

	return Properties{
		SMILES:                 smiles,
		Valid:                  true,
		LogP:                   round2(logp),
		MolecularWeight:        round2(mw),
		EstimatedVaporPressure: round6(vp),
		VolatilityClass:        classifyVolatility(mw),
	}
}

// parseSMILES scans a SMILES string into an atom inventory. This is a
// counting parser, not a full grammar: it recognizes organic-subset atoms,
// bracket atoms, bond symbols, and ring-closure digits, which is enough
// for additive property estimation over fragrance-scale molecules.
func parseSMILES(smiles string) (composition, bool) {
	comp := composition{counts: make(map[string]int)}
	ringDigits := 0

	runes := []rune(smiles)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '[':
			// Bracket atom: take the element symbol, skip charge/H-count.
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return comp, false
			}
			body := string(runes[i+1 : end])
			sym := bracketElement(body)
			if sym == "" {
				return comp, false
			}
			comp.counts[sym]++
			if body[0] >= 'a' && body[0] <= 'z' {
				comp.aromaticAtoms++
			}
			i = end
		case r == 'C' && i+1 < len(runes) && runes[i+1] == 'l':
			comp.counts["Cl"]++
			i++
		case r == 'B' && i+1 < len(runes) && runes[i+1] == 'r':
			comp.counts["Br"]++
			i++
		case r == 'C' || r == 'N' || r == 'O' || r == 'S' || r == 'P' || r == 'F' || r == 'I':
			comp.counts[string(r)]++
		case r == 'c' || r == 'n' || r == 'o' || r == 's':
			comp.counts[strings.ToUpper(string(r))]++
			comp.aromaticAtoms++
		case r == '=':
			comp.doubleBonds++
		case r == '#':
			comp.tripleBonds++
		case r >= '0' && r <= '9':
			ringDigits++
		case r == '%':
			// Two-digit ring closure: %NN
			if i+2 < len(runes) {
				i += 2
			}
			ringDigits++
		case r == '(' || r == ')' || r == '-' || r == '/' || r == '\\' || r == '@' || r == '+':
			// Branches, single bonds, stereo marks: no effect on composition.
		default:
			return comp, false
		}
	}

	// Ring-closure digits come in pairs; each pair is one ring.
	comp.rings = ringDigits / 2
	return comp, true
}

// bracketElement extracts the element symbol from a bracket atom body such
// as "N+", "nH", or "O-".
func bracketElement(body string) string {
	if body == "" {
		return ""
	}
	if len(body) >= 2 {
		two := strings.ToUpper(body[:1]) + body[1:2]
		if two == "Cl" || two == "Br" {
			return two
		}
	}
	one := strings.ToUpper(body[:1])
	if _, ok := atomicMass[one]; ok {
		return one
	}
	return ""
}

// degreesOfUnsaturation counts rings plus pi bonds. Aromatic rings carry
// their implicit alternating double bonds as aromaticAtoms/2.
func degreesOfUnsaturation(c composition) int {
	return c.rings + c.doubleBonds + 2*c.tripleBonds + c.aromaticAtoms/2
}

// implicitHydrogens estimates hydrogen count from the saturation formula
// H = 2C + 2 + N - 2*DoU, with halogens substituting for hydrogens.
func implicitHydrogens(c composition) int {
	carbons := c.counts["C"]
	nitrogens := c.counts["N"]
	halogens := c.counts["F"] + c.counts["Cl"] + c.counts["Br"] + c.counts["I"]

	h := 2*carbons + 2 + nitrogens - 2*degreesOfUnsaturation(c) - halogens
	if h < 0 {
		h = 0
	}
	return h
}

func molecularWeight(c composition) float64 {
	var mw float64
	for sym, n := range c.counts {
		mw += atomicMass[sym] * float64(n)
	}
	return mw + 1.008*float64(implicitHydrogens(c))
}

// estimateLogP is a coarse additive estimate: carbons and halogens push
// lipophilicity up, heteroatoms and unsaturation pull it down.
func estimateLogP(c composition) float64 {
	return 0.52*float64(c.counts["C"]) -
		0.72*float64(c.counts["O"]) -
		0.82*float64(c.counts["N"]) +
		0.45*float64(c.counts["S"]) +
		0.65*float64(c.counts["Cl"]+c.counts["Br"]+c.counts["I"]) +
		0.14*float64(c.counts["F"]) -
		0.10*float64(degreesOfUnsaturation(c))
}

// vaporPressure uses an empirical correlation over molecular weight and
// logP, with a simplified Clausius-Clapeyron temperature correction.
// Coefficients derived from fragrance compound data.
func vaporPressure(mw, logp, temperatureC float64) float64 {
	const (
		a = 2.5
		b = 8.0
		c = 0.3
	)
	logVP := a - b*(mw/1000) - c*logp

	tempK := temperatureC + 273.15
	tempFactor := (tempK / 298.15) * (tempK / 298.15)

	return math.Pow(10, logVP) * tempFactor
}

// classifyVolatility buckets a molecule by molecular weight: light
// molecules evaporate as top notes, heavy ones persist as base notes.
func classifyVolatility(mw float64) string {
	switch {
	case mw < 150:
		return "high"
	case mw < 250:
		return "medium"
	default:
		return "low"
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }
