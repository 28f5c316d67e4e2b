package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestGenerateFormula(t *testing.T) {
	srv := testServer(t)

	body := `{"profile":{"ph":5.5,"skin_type":"Dry","temperature":36.6},"save":true}`
	w, resp := doJSON(t, srv, "POST", "/api/formulas/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	formula, ok := resp["formula"].(map[string]any)
	if !ok {
		t.Fatalf("no formula in response: %v", resp)
	}
	id, _ := formula["formula_id"].(string)
	if id == "" {
		t.Fatal("formula_id missing")
	}
	ingredients, _ := formula["ingredients"].([]any)
	if len(ingredients) == 0 {
		t.Error("formula has no ingredients")
	}
	corrections, _ := formula["corrections_applied"].([]any)
	if len(corrections) == 0 {
		t.Error("dry-skin profile should trigger a correction")
	}
	if _, ok := resp["ifra"].(map[string]any); !ok {
		t.Error("ifra result missing")
	}

	// save:true persisted the snapshot.
	w, _ = doJSON(t, srv, "GET", "/api/formulas/"+id, "")
	if w.Code != http.StatusOK {
		t.Errorf("saved formula fetch status = %d, want 200", w.Code)
	}
}

func TestGenerateFormulaValidation(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/formulas/generate", `{"profile":{"ph":5.5}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing skin_type status = %d, want 400", w.Code)
	}

	w, _ = doJSON(t, srv, "POST", "/api/formulas/generate", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", w.Code)
	}
}

func TestValidateFormulaEndpoint(t *testing.T) {
	srv := testServer(t)

	body := `{"ingredients":[
		{"ingredient":{"id":"x","name":"Linalool (synthetic)"},"concentration":2.0}
	]}`
	w, resp := doJSON(t, srv, "POST", "/api/formulas/validate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["compliant"] != false {
		t.Errorf("compliant = %v, want false for 2%% linalool", resp["compliant"])
	}
}

func TestGetFormulaNotFound(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "GET", "/api/formulas/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListFormulas(t *testing.T) {
	srv := testServer(t)

	for i := 0; i < 2; i++ {
		body := `{"profile":{"ph":5.5,"skin_type":"Normal","temperature":36.6},"save":true}`
		if w, _ := doJSON(t, srv, "POST", "/api/formulas/generate", body); w.Code != http.StatusOK {
			t.Fatalf("generate status = %d", w.Code)
		}
	}

	w, resp := doJSON(t, srv, "GET", "/api/formulas", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestListRules(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "GET", "/api/rules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}
}

func TestApplicableRules(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/rules/applicable",
		`{"ph":4.0,"skin_type":"Dry","temperature":36.6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// Both rules hold: skin type Dry and pH under 4.5.
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	w, resp = doJSON(t, srv, "POST", "/api/rules/applicable",
		`{"ph":5.5,"skin_type":"Normal","temperature":36.6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestQueryRules(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/rules/query?limit=1",
		`{"ph":4.0,"skin_type":"Dry","temperature":36.6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["mode"] != "keyword" {
		t.Errorf("mode = %v, want keyword", resp["mode"])
	}
	rules, _ := resp["rules"].([]any)
	if len(rules) != 1 {
		t.Fatalf("rules = %d, want limit 1", len(rules))
	}
	hit, _ := rules[0].(map[string]any)
	if hit["relevance_score"] != 0.9 {
		t.Errorf("relevance = %v, want 0.9", hit["relevance_score"])
	}
}

func TestListIngredientsFilters(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		path string
		want float64
	}{
		{"/api/ingredients", 6},
		{"/api/ingredients?note_type=top", 2},
		{"/api/ingredients?family=floral", 2},
		{"/api/ingredients?descriptor=fresh", 2},
		{"/api/ingredients?sustainable=true", 2},
		{"/api/ingredients?min_sustainability=8", 1},
		{"/api/ingredients?fixatives=true", 3},
		{"/api/ingredients?non_allergenic=true", 6},
	}
	for _, tt := range tests {
		w, resp := doJSON(t, srv, "GET", tt.path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", tt.path, w.Code)
			continue
		}
		if resp["count"] != tt.want {
			t.Errorf("%s count = %v, want %v", tt.path, resp["count"], tt.want)
		}
	}
}

func TestMolecularProperties(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/molecular/properties", `{"smiles":"CCO"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["valid"] != true {
		t.Errorf("valid = %v, want true", resp["valid"])
	}
	if resp["molecular_weight"] != 46.07 {
		t.Errorf("molecular_weight = %v, want 46.07", resp["molecular_weight"])
	}

	w, resp = doJSON(t, srv, "POST", "/api/molecular/properties", `{"smiles":"???"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["valid"] == true {
		t.Error("garbage structure marked valid")
	}
}

func TestCalibrateProfile(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/calibration/profile",
		`{"ph":4.0,"skin_type":"Dry","temperature":37.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	if id, _ := resp["profile_id"].(string); id == "" {
		t.Error("profile_id missing")
	}

	ph, _ := resp["ph"].(map[string]any)
	if ph == nil || ph["category"] != "acidic" {
		t.Errorf("ph = %v, want acidic category", ph)
	}
	temp, _ := resp["temperature"].(map[string]any)
	if temp == nil || temp["category"] != "warm" {
		t.Errorf("temperature = %v, want warm category", temp)
	}
	skin, _ := resp["skin_type"].(map[string]any)
	if skin == nil {
		t.Fatal("skin_type missing")
	}
	adjustments, _ := skin["adjustments"].([]any)
	if len(adjustments) == 0 {
		t.Error("skin adjustments missing")
	}
}

func TestCalibrateProfileValidation(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/calibration/profile", `{"ph":5.5}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing skin_type status = %d, want 400", w.Code)
	}
}

func TestCalibrateEEGSimulated(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/calibration/eeg", `{"mood":"calm","duration":4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	va, _ := resp["valence_arousal"].(map[string]any)
	if va == nil {
		t.Fatal("valence_arousal missing")
	}
	arousal, _ := va["arousal"].(float64)
	if arousal < 0 || arousal > 1 {
		t.Errorf("arousal = %v outside [0,1]", arousal)
	}
	if resp["quadrant"] == nil || resp["mapping"] == nil {
		t.Error("quadrant/mapping missing")
	}
}

func TestCalibrateEEGRequiresInput(t *testing.T) {
	srv := testServer(t)

	w, _ := doJSON(t, srv, "POST", "/api/calibration/eeg", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSnapshotRoundtripThroughAPI(t *testing.T) {
	srv := testServer(t)

	body := `{"profile":{"ph":4.0,"skin_type":"Dry","temperature":36.6},"save":true}`
	w, resp := doJSON(t, srv, "POST", "/api/formulas/generate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d", w.Code)
	}
	formula := resp["formula"].(map[string]any)
	id := formula["formula_id"].(string)

	w, _ = doJSON(t, srv, "GET", "/api/formulas/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}

	var rec struct {
		ID          string `json:"formula_id"`
		Ingredients []struct {
			Concentration float64 `json:"concentration"`
		} `json:"ingredients"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.ID != id {
		t.Errorf("record ID = %s, want %s", rec.ID, id)
	}
	if len(rec.Ingredients) == 0 {
		t.Error("snapshot ingredients missing")
	}
}
