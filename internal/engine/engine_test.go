package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aetherlab/aether/internal/store"
)

const testCatalog = `{
  "ingredients": [
    {"id": "bergamot", "name": "Bergamot Oil", "note_type": "top", "family": "citrus",
     "logp": 2.8, "is_sustainable": true, "source": "natural", "sustainability_score": 8,
     "descriptors": ["fresh", "zesty"]},
    {"id": "pink-pepper", "name": "Pink Pepper", "note_type": "top", "family": "spicy",
     "logp": 3.1, "sustainability_score": 6, "descriptors": ["spicy", "bright"]},
    {"id": "galbanum", "name": "Galbanum", "note_type": "top", "family": "green",
     "logp": 2.4, "sustainability_score": 5, "descriptors": ["green", "fresh"]},
    {"id": "rose-abs", "name": "Rose Absolute", "note_type": "middle", "family": "floral",
     "logp": 2.6, "is_sustainable": true, "source": "natural", "sustainability_score": 7,
     "descriptors": ["floral", "honeyed"]},
    {"id": "linalool-syn", "name": "Linalool (synthetic)", "note_type": "middle", "family": "floral",
     "logp": 2.97, "sustainability_score": 4, "allergen": true,
     "descriptors": ["floral", "lavender"]},
    {"id": "geranium", "name": "Geranium Bourbon", "note_type": "middle", "family": "floral",
     "logp": 3.0, "sustainability_score": 6, "descriptors": ["rosy", "minty"]},
    {"id": "sandalwood", "name": "Sandalwood (Mysore)", "note_type": "base", "family": "woody",
     "logp": 4.1, "is_sustainable": true, "source": "natural", "sustainability_score": 7,
     "descriptors": ["creamy", "woody"]},
    {"id": "vetiver", "name": "Vetiver Haiti", "note_type": "base", "family": "woody",
     "logp": 4.5, "is_sustainable": true, "source": "natural", "sustainability_score": 8,
     "descriptors": ["earthy", "smoky"]},
    {"id": "white-musk", "name": "White Musk", "note_type": "base", "family": "musky",
     "logp": 5.2, "sustainability_score": 5, "descriptors": ["clean", "soft"]}
  ]
}`

const testRules = `{
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
    {"id": "oily-skin-oxidation",
     "condition": {"parameter": "skin_type", "operator": "==", "value": "Oily"},
     "target": "citrus", "action": "flag_oxidation_risk",
     "reasoning": "Squalene accelerates terpene oxidation"},
    {"id": "warm-skin-top-notes",
     "condition": {"parameter": "temperature", "operator": ">", "value": 37.0},
     "target": "top notes", "action": "reduce_proportion",
     "threshold": {"target_proportion": 0.15},
     "reasoning": "Warm skin amplifies volatility"},
    {"id": "allergy-linalool",
     "condition": {"parameter": "allergies", "operator": "contains", "value": "linalool"},
     "target": "linalool", "action": "eliminate_or_substitute",
     "substitute": {"linalool": "dihydromyrcenol"},
     "reasoning": "Declared allergen"}
  ]
}`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ImportIngredients(writeDoc(t, "ingredients.json", testCatalog)); err != nil {
		t.Fatalf("ImportIngredients: %v", err)
	}
	if _, err := db.ImportRules(writeDoc(t, "rules.json", testRules)); err != nil {
		t.Fatalf("ImportRules: %v", err)
	}
	return db
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(context.Background(), testDB(t), Options{DisableVector: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func TestNewLoadsRules(t *testing.T) {
	eng := testEngine(t)

	if len(eng.Rules()) != 5 {
		t.Errorf("rules = %d, want 5", len(eng.Rules()))
	}
	if eng.RetrievalMode() != "keyword" {
		t.Errorf("mode = %q, want keyword", eng.RetrievalMode())
	}
}

func TestGenerateDrySkin(t *testing.T) {
	eng := testEngine(t)

	profile := UserProfile{PH: 5.5, SkinType: SkinDry, Temperature: 36.6}
	formula, err := eng.Generate(profile, nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if formula.ID == "" || formula.Name == "" {
		t.Error("formula missing identity")
	}
	// 2 top + 3 middle + 3 base slots from a full catalog.
	if len(formula.Ingredients) != 8 {
		t.Fatalf("ingredients = %d, want 8", len(formula.Ingredients))
	}

	// boost_high_logp fires for dry skin: sandalwood 15 * 1.2 = 18.
	var sandalwood *FormulaIngredient
	for i := range formula.Ingredients {
		if formula.Ingredients[i].Ingredient.ID == "sandalwood" {
			sandalwood = &formula.Ingredients[i]
		}
	}
	if sandalwood == nil {
		t.Fatal("sandalwood missing from formula")
	}
	if !sandalwood.Adjusted || !almostEqual(sandalwood.Concentration, 18.0) {
		t.Errorf("sandalwood = %.2f (adjusted=%v), want 18.00 adjusted", sandalwood.Concentration, sandalwood.Adjusted)
	}
	if len(formula.Corrections) == 0 {
		t.Error("expected a correction log entry")
	}

	if formula.SustainabilityScore == 0 {
		t.Error("sustainability score not computed")
	}
	sum := formula.NotePyramid.Top + formula.NotePyramid.Middle + formula.NotePyramid.Base
	if sum < 99.5 || sum > 100.5 {
		t.Errorf("pyramid sums to %.1f, want ~100", sum)
	}
}

func TestGenerateAllergyExcludesIngredient(t *testing.T) {
	eng := testEngine(t)

	profile := UserProfile{PH: 5.5, SkinType: SkinNormal, Temperature: 36.6, Allergies: []string{"linalool"}}
	formula, err := eng.Generate(profile, nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, fi := range formula.Ingredients {
		if fi.Ingredient.ID == "linalool-syn" {
			t.Error("linalool-syn present despite linalool allergy")
		}
	}
}

func TestGenerateDeterministicForProfile(t *testing.T) {
	eng := testEngine(t)

	profile := UserProfile{PH: 4.0, SkinType: SkinOily, Temperature: 37.5}
	a, err := eng.Generate(profile, nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := eng.Generate(profile, nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(a.Ingredients) != len(b.Ingredients) {
		t.Fatalf("ingredient counts differ: %d vs %d", len(a.Ingredients), len(b.Ingredients))
	}
	for i := range a.Ingredients {
		if a.Ingredients[i].Ingredient.ID != b.Ingredients[i].Ingredient.ID ||
			!almostEqual(a.Ingredients[i].Concentration, b.Ingredients[i].Concentration) {
			t.Errorf("ingredient %d differs between runs", i)
		}
	}
	if len(a.Corrections) != len(b.Corrections) {
		t.Errorf("correction logs differ: %v vs %v", a.Corrections, b.Corrections)
	}
}

func TestSaveSnapshot(t *testing.T) {
	db := testDB(t)
	eng, err := New(context.Background(), db, Options{DisableVector: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	profile := UserProfile{PH: 5.5, SkinType: SkinNormal, Temperature: 36.6}
	formula, err := eng.Generate(profile, nil, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := eng.SaveSnapshot(formula); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	rec, err := db.GetFormula(formula.ID)
	if err != nil {
		t.Fatalf("GetFormula: %v", err)
	}
	if rec == nil {
		t.Fatal("snapshot not persisted")
	}

	var ingredients []FormulaIngredient
	if err := json.Unmarshal(rec.IngredientsJSON, &ingredients); err != nil {
		t.Fatalf("decode snapshot ingredients: %v", err)
	}
	if len(ingredients) != len(formula.Ingredients) {
		t.Errorf("snapshot ingredients = %d, want %d", len(ingredients), len(formula.Ingredients))
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}
