package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aetherlab/aether/internal/engine"
	"github.com/aetherlab/aether/internal/ifra"
)

var (
	genPH          float64
	genSkinType    string
	genTemperature float64
	genAllergies   []string
	genPreferences []string
	genValence     float64
	genArousal     float64
	genUseVA       bool
	genSave        bool
	genJSON        bool
	genIngredients string
	genRules       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a personalized formula for a profile",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().Float64Var(&genPH, "ph", 5.5, "Skin pH")
	generateCmd.Flags().StringVar(&genSkinType, "skin", "Normal", "Skin type: Dry, Normal, Oily")
	generateCmd.Flags().Float64Var(&genTemperature, "temperature", 36.6, "Body temperature in Celsius")
	generateCmd.Flags().StringSliceVar(&genAllergies, "allergy", nil, "Known allergen (repeatable)")
	generateCmd.Flags().StringSliceVar(&genPreferences, "prefer", nil, "Preferred scent family (repeatable)")
	generateCmd.Flags().Float64Var(&genValence, "valence", 0, "Affective valence, -1 to 1")
	generateCmd.Flags().Float64Var(&genArousal, "arousal", 0, "Affective arousal, 0 to 1")
	generateCmd.Flags().BoolVar(&genUseVA, "va", false, "Apply the valence/arousal bias")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "Persist the generated formula")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the formula as JSON")
	generateCmd.Flags().StringVar(&genIngredients, "ingredients", "", "Ingredient catalog JSON to import first")
	generateCmd.Flags().StringVar(&genRules, "rules", "", "Physiological rule JSON to import first")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := importSeeds(db, genIngredients, genRules); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// One-shot generation never needs ranked retrieval; skip the probe.
	eng, err := engine.New(ctx, db, engine.Options{DisableVector: true})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	profile := engine.UserProfile{
		PH:          genPH,
		SkinType:    genSkinType,
		Temperature: genTemperature,
		Allergies:   genAllergies,
	}

	var valence, arousal *float64
	if genUseVA {
		valence, arousal = &genValence, &genArousal
	}

	formula, err := eng.Generate(profile, genPreferences, valence, arousal)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	compliance := ifra.Validate(formula.Ingredients)
	formula.IFRACompliant = compliance.Compliant

	if genSave {
		if err := eng.SaveSnapshot(formula); err != nil {
			return fmt.Errorf("save formula: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved formula %s\n", formula.ID)
	}

	if genJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"formula": formula, "ifra": compliance})
	}

	printFormula(formula, compliance)
	return nil
}

func printFormula(f *engine.Formula, compliance ifra.Result) {
	fmt.Printf("%s (%s)\n", f.Name, f.ID)
	fmt.Printf("  %s\n\n", f.Description)

	for _, note := range []string{"top", "middle", "base"} {
		fmt.Printf("  %s notes:\n", strings.ToUpper(note[:1])+note[1:])
		for _, fi := range f.Ingredients {
			if fi.Ingredient.NoteType != note {
				continue
			}
			marker := ""
			if fi.Adjusted {
				marker = " *"
			}
			fmt.Printf("    %-28s %6.2f%%%s\n", fi.Ingredient.Name, fi.Concentration, marker)
		}
	}

	fmt.Printf("\n  pyramid: top %.1f%% / middle %.1f%% / base %.1f%%\n",
		f.NotePyramid.Top, f.NotePyramid.Middle, f.NotePyramid.Base)
	fmt.Printf("  sustainability: %.1f/10\n", f.SustainabilityScore)
	fmt.Printf("  ifra compliant: %v (allergens %.2f%%)\n", compliance.Compliant, compliance.AllergenTotal)

	if len(f.Corrections) > 0 {
		fmt.Println("\n  corrections:")
		for _, c := range f.Corrections {
			fmt.Printf("    - %s\n", c)
		}
	}
}
