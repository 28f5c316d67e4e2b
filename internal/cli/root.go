package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aetherlab/aether/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "aether",
	Short: "Physiology-aware perfume formula engine",
	Long:  "Aether generates personalized perfume formulas from a physiological profile, correcting ingredient concentrations with a retrieval-backed rule base.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(importCmd)
}

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("AETHER_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// importSeeds loads the JSON seed files into the store when the paths are
// set, reporting counts to stderr. Missing files are skipped silently so a
// fresh checkout can run against an already-populated database.
func importSeeds(db *store.DB, ingredientsPath, rulesPath string) error {
	if ingredientsPath != "" {
		n, err := db.ImportIngredients(ingredientsPath)
		if err != nil {
			return fmt.Errorf("import ingredients: %w", err)
		}
		if n > 0 {
			fmt.Fprintf(os.Stderr, "  imported %d ingredients\n", n)
		}
	}
	if rulesPath != "" {
		n, err := db.ImportRules(rulesPath)
		if err != nil {
			return fmt.Errorf("import rules: %w", err)
		}
		if n > 0 {
			fmt.Fprintf(os.Stderr, "  imported %d rules\n", n)
		}
	}
	return nil
}
