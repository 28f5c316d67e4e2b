package store

import (
	"path/filepath"
	"testing"
)

const rulesSeed = `{
  "rules": [
    {"id": "ph-low-aldehydes",
     "condition": {"parameter": "ph", "operator": "<", "value": 4.5},
     "target": "aldehydes", "action": "reduce_concentration", "factor": 0.85,
     "reasoning": "Acidic skin destabilizes aldehydes"},
    {"id": "dry-skin-fixatives",
     "condition": {"parameter": "skin_type", "operator": "==", "value": "Dry"},
     "target": "fixatives", "action": "boost_high_logp", "factor": 1.2,
     "threshold": {"logp": 3.5},
     "reasoning": "Dry skin sheds volatiles quickly"},
    {"id": "allergy-linalool",
     "condition": {"parameter": "allergies", "operator": "contains", "value": "linalool"},
     "target": "linalool", "action": "eliminate_or_substitute",
     "substitute": {"linalool": "dihydromyrcenol"},
     "reasoning": "Declared allergen"}
  ]
}`

func seedRules(t *testing.T, db *DB) {
	t.Helper()
	n, err := db.ImportRules(writeSeed(t, "rules.json", rulesSeed))
	if err != nil {
		t.Fatalf("ImportRules: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d rules, want 3", n)
	}
}

func TestImportRulesMissingFile(t *testing.T) {
	db := testDB(t)

	n, err := db.ImportRules(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if n != 0 {
		t.Errorf("imported %d, want 0", n)
	}
}

func TestImportRulesInvalid(t *testing.T) {
	db := testDB(t)

	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", `{"rules":[{"condition":{"parameter":"ph","operator":"<","value":4.5},"target":"x","action":"reduce_concentration"}]}`},
		{"missing parameter", `{"rules":[{"id":"r","condition":{"operator":"<","value":4.5},"target":"x","action":"reduce_concentration"}]}`},
		{"invalid operator", `{"rules":[{"id":"r","condition":{"parameter":"ph","operator":"<=","value":4.5},"target":"x","action":"reduce_concentration"}]}`},
		{"missing value", `{"rules":[{"id":"r","condition":{"parameter":"ph","operator":"<"},"target":"x","action":"reduce_concentration"}]}`},
		{"missing target", `{"rules":[{"id":"r","condition":{"parameter":"ph","operator":"<","value":4.5},"action":"reduce_concentration"}]}`},
		{"missing action", `{"rules":[{"id":"r","condition":{"parameter":"ph","operator":"<","value":4.5},"target":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.ImportRules(writeSeed(t, "bad.json", tt.doc)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestAllRulesOrder(t *testing.T) {
	db := testDB(t)
	seedRules(t, db)

	rules, err := db.AllRules()
	if err != nil {
		t.Fatalf("AllRules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("rules = %d, want 3", len(rules))
	}
	want := []string{"ph-low-aldehydes", "dry-skin-fixatives", "allergy-linalool"}
	for i, id := range want {
		if rules[i].ID != id {
			t.Errorf("rules[%d].ID = %s, want %s", i, rules[i].ID, id)
		}
	}
}

func TestImportRulesReordered(t *testing.T) {
	db := testDB(t)
	seedRules(t, db)

	if err := db.SaveRuleVector("ph-low-aldehydes", []float64{0.1, 0.2}, "test-model"); err != nil {
		t.Fatalf("SaveRuleVector: %v", err)
	}
	if err := db.SaveRuleVector("dry-skin-fixatives", []float64{0.3, 0.4}, "test-model"); err != nil {
		t.Fatalf("SaveRuleVector: %v", err)
	}

	// Swap the remaining two rules and drop dry-skin-fixatives.
	reordered := `{
  "rules": [
    {"id": "allergy-linalool",
     "condition": {"parameter": "allergies", "operator": "contains", "value": "linalool"},
     "target": "linalool", "action": "eliminate_or_substitute",
     "substitute": {"linalool": "dihydromyrcenol"},
     "reasoning": "Declared allergen"},
    {"id": "ph-low-aldehydes",
     "condition": {"parameter": "ph", "operator": "<", "value": 4.5},
     "target": "aldehydes", "action": "reduce_concentration", "factor": 0.85,
     "reasoning": "Acidic skin destabilizes aldehydes"}
  ]
}`
	n, err := db.ImportRules(writeSeed(t, "reordered.json", reordered))
	if err != nil {
		t.Fatalf("re-import reordered rules: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}

	rules, err := db.AllRules()
	if err != nil {
		t.Fatalf("AllRules: %v", err)
	}
	want := []string{"allergy-linalool", "ph-low-aldehydes"}
	if len(rules) != len(want) {
		t.Fatalf("rules = %d, want %d", len(rules), len(want))
	}
	for i, id := range want {
		if rules[i].ID != id {
			t.Errorf("rules[%d].ID = %s, want %s", i, rules[i].ID, id)
		}
	}

	// The retained rule keeps its cached vector; the dropped rule's
	// cascades away with the row.
	kept, err := db.GetRuleVector("ph-low-aldehydes")
	if err != nil {
		t.Fatalf("GetRuleVector: %v", err)
	}
	if kept == nil {
		t.Error("retained rule lost its vector on re-import")
	}
	gone, err := db.GetRuleVector("dry-skin-fixatives")
	if err != nil {
		t.Fatalf("GetRuleVector: %v", err)
	}
	if gone != nil {
		t.Error("dropped rule's vector survived re-import")
	}
}

func TestRuleRoundtrip(t *testing.T) {
	db := testDB(t)
	seedRules(t, db)

	rule, err := db.RuleByID("dry-skin-fixatives")
	if err != nil {
		t.Fatalf("RuleByID: %v", err)
	}
	if rule == nil {
		t.Fatal("rule not found")
	}
	if rule.Condition.Operator != "==" {
		t.Errorf("Operator = %q, want ==", rule.Condition.Operator)
	}
	if v, ok := rule.Condition.Value.(string); !ok || v != "Dry" {
		t.Errorf("Value = %v (%T), want Dry", rule.Condition.Value, rule.Condition.Value)
	}
	if rule.Factor == nil || *rule.Factor != 1.2 {
		t.Errorf("Factor = %v, want 1.2", rule.Factor)
	}
	if rule.Threshold["logp"] != 3.5 {
		t.Errorf("Threshold[logp] = %v, want 3.5", rule.Threshold["logp"])
	}

	sub, err := db.RuleByID("allergy-linalool")
	if err != nil {
		t.Fatalf("RuleByID: %v", err)
	}
	if sub.Substitute["linalool"] != "dihydromyrcenol" {
		t.Errorf("Substitute = %v", sub.Substitute)
	}
	// Numeric condition values decode as float64.
	ph, err := db.RuleByID("ph-low-aldehydes")
	if err != nil {
		t.Fatalf("RuleByID: %v", err)
	}
	if v, ok := ph.Condition.Value.(float64); !ok || v != 4.5 {
		t.Errorf("Value = %v (%T), want 4.5 float64", ph.Condition.Value, ph.Condition.Value)
	}

	missing, err := db.RuleByID("nope")
	if err != nil {
		t.Fatalf("RuleByID(nope): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown id")
	}
}
