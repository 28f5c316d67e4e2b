package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aetherlab/aether/internal/engine"
)

var (
	rulesPH          float64
	rulesSkinType    string
	rulesTemperature float64
	rulesAllergies   []string
	rulesLimit       int
	rulesNoVector    bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the physiological rule base",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules in store order",
	RunE:  runRulesList,
}

var rulesApplicableCmd = &cobra.Command{
	Use:   "applicable",
	Short: "Show rules whose conditions hold for a profile",
	RunE:  runRulesApplicable,
}

var rulesQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ranked rule retrieval for a profile",
	RunE:  runRulesQuery,
}

func init() {
	for _, c := range []*cobra.Command{rulesApplicableCmd, rulesQueryCmd} {
		c.Flags().Float64Var(&rulesPH, "ph", 5.5, "Skin pH")
		c.Flags().StringVar(&rulesSkinType, "skin", "Normal", "Skin type: Dry, Normal, Oily")
		c.Flags().Float64Var(&rulesTemperature, "temperature", 36.6, "Body temperature in Celsius")
		c.Flags().StringSliceVar(&rulesAllergies, "allergy", nil, "Known allergen (repeatable)")
	}
	rulesQueryCmd.Flags().IntVarP(&rulesLimit, "limit", "n", 5, "Maximum number of results")
	rulesQueryCmd.Flags().BoolVar(&rulesNoVector, "no-vector", false, "Skip the vector backend and use keyword retrieval")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesApplicableCmd)
	rulesCmd.AddCommand(rulesQueryCmd)
}

func rulesProfile() engine.UserProfile {
	return engine.UserProfile{
		PH:          rulesPH,
		SkinType:    rulesSkinType,
		Temperature: rulesTemperature,
		Allergies:   rulesAllergies,
	}
}

func newRulesEngine(ctx context.Context, disableVector bool) (*engine.Engine, func(), error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	eng, err := engine.New(ctx, db, engine.Options{DisableVector: disableVector})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return eng, func() { db.Close() }, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	eng, closeDB, err := newRulesEngine(context.Background(), true)
	if err != nil {
		return err
	}
	defer closeDB()

	for _, r := range eng.Rules() {
		fmt.Printf("%-24s %s %s %v -> %s (%s)\n",
			r.ID, r.Condition.Parameter, r.Condition.Operator, r.Condition.Value,
			r.Action, r.Target)
	}
	fmt.Printf("%d rules\n", len(eng.Rules()))
	return nil
}

func runRulesApplicable(cmd *cobra.Command, args []string) error {
	eng, closeDB, err := newRulesEngine(context.Background(), true)
	if err != nil {
		return err
	}
	defer closeDB()

	matched := eng.ApplicableRules(rulesProfile())
	for _, r := range matched {
		fmt.Printf("%-24s %s -> %s\n    %s\n", r.ID, r.Action, r.Target, r.Reasoning)
	}
	fmt.Printf("%d applicable\n", len(matched))
	return nil
}

func runRulesQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eng, closeDB, err := newRulesEngine(ctx, rulesNoVector)
	if err != nil {
		return err
	}
	defer closeDB()

	retrieved, err := eng.QueryRules(ctx, rulesProfile(), rulesLimit)
	if err != nil {
		return fmt.Errorf("query rules: %w", err)
	}

	fmt.Printf("retrieval mode: %s\n", eng.RetrievalMode())
	for _, rr := range retrieved {
		fmt.Printf("%.3f  %-24s %s -> %s\n", rr.Relevance, rr.Rule.ID, rr.Rule.Action, rr.Rule.Target)
	}
	return nil
}
