package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	importIngredients string
	importRules       string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import ingredient and rule JSON into the database",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importIngredients, "ingredients", "", "Ingredient catalog JSON")
	importCmd.Flags().StringVar(&importRules, "rules", "", "Physiological rule JSON")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importIngredients == "" && importRules == "" {
		return fmt.Errorf("nothing to import: pass --ingredients and/or --rules")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	return importSeeds(db, importIngredients, importRules)
}
