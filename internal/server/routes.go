package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aetherlab/aether/internal/engine"
	"github.com/aetherlab/aether/internal/ifra"
	"github.com/aetherlab/aether/internal/molecular"
	"github.com/aetherlab/aether/internal/neuro"
	"github.com/aetherlab/aether/internal/store"
)

func (s *Server) handleGenerateFormula(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile     engine.UserProfile `json:"profile"`
		Preferences []string           `json:"preferences"`
		Valence     *float64           `json:"valence"`
		Arousal     *float64           `json:"arousal"`
		Save        bool               `json:"save"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Profile.SkinType == "" {
		writeError(w, http.StatusBadRequest, "profile.skin_type required")
		return
	}

	formula, err := s.engine.Generate(req.Profile, req.Preferences, req.Valence, req.Arousal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	compliance := ifra.Validate(formula.Ingredients)
	formula.IFRACompliant = compliance.Compliant

	if req.Save {
		if err := s.engine.SaveSnapshot(formula); err != nil {
			// Persistence is best-effort; the generated formula is still
			// returned to the caller.
			log.Printf("save formula %s: %v", formula.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"formula": formula,
		"ifra":    compliance,
	})
}

func (s *Server) handleValidateFormula(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ingredients []engine.FormulaIngredient `json:"ingredients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	writeJSON(w, http.StatusOK, ifra.Validate(req.Ingredients))
}

func (s *Server) handleListFormulas(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.db.ListFormulas(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"formulas": records, "count": len(records)})
}

func (s *Server) handleGetFormula(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetFormula(chi.URLParam(r, "formulaID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "formula not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules := s.engine.Rules()
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

func (s *Server) handleApplicableRules(w http.ResponseWriter, r *http.Request) {
	var profile engine.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	rules := s.engine.ApplicableRules(profile)
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

func (s *Server) handleQueryRules(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	var profile engine.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	retrieved, err := s.engine.QueryRules(r.Context(), profile, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": retrieved,
		"count": len(retrieved),
		"mode":  s.engine.RetrievalMode(),
	})
}

func (s *Server) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		ingredients []store.Ingredient
		err         error
	)
	switch {
	case q.Get("note_type") != "":
		ingredients, err = s.db.IngredientsByNoteType(q.Get("note_type"))
	case q.Get("family") != "":
		ingredients, err = s.db.IngredientsByFamily(q.Get("family"))
	case q.Get("descriptor") != "":
		ingredients, err = s.db.SearchByDescriptor(q.Get("descriptor"))
	case q.Get("min_sustainability") != "":
		min, convErr := strconv.Atoi(q.Get("min_sustainability"))
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "min_sustainability must be an integer")
			return
		}
		ingredients, err = s.db.SustainableIngredients(min)
	case q.Get("sustainable") == "true":
		ingredients, err = s.db.SustainableIngredients(7)
	case q.Get("fixatives") == "true":
		ingredients, err = s.db.Fixatives(3.0)
	case q.Get("non_allergenic") == "true":
		ingredients, err = s.db.NonAllergenic()
	default:
		ingredients, err = s.db.AllIngredients()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredients": ingredients, "count": len(ingredients)})
}

func (s *Server) handleMolecularProperties(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SMILES      string   `json:"smiles"`
		Temperature *float64 `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var props molecular.Properties
	if req.Temperature != nil {
		props = molecular.EstimateAt(req.SMILES, *req.Temperature)
	} else {
		props = molecular.Estimate(req.SMILES)
	}
	writeJSON(w, http.StatusOK, props)
}

func (s *Server) handleCalibrateProfile(w http.ResponseWriter, r *http.Request) {
	var profile engine.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if profile.SkinType == "" {
		writeError(w, http.StatusBadRequest, "skin_type required")
		return
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	phCategory, phRecs := engine.PHCategory(profile.PH)
	tempCategory, tempRecs := engine.TemperatureCategory(profile.Temperature)

	writeJSON(w, http.StatusOK, map[string]any{
		"profile_id": profile.ID,
		"ph": map[string]any{
			"category":        phCategory,
			"recommendations": phRecs,
		},
		"temperature": map[string]any{
			"category":        tempCategory,
			"recommendations": tempRecs,
		},
		"skin_type": map[string]any{
			"type":        profile.SkinType,
			"adjustments": engine.SkinTypeAdjustments(profile.SkinType),
		},
	})
}

func (s *Server) handleCalibrateEEG(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channels [][]float64 `json:"channels"`
		SFreq    float64     `json:"sfreq"`
		Mood     string      `json:"mood"`
		Duration float64     `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.SFreq <= 0 {
		req.SFreq = 256
	}

	// No raw channels supplied: simulate a session for the requested mood.
	if len(req.Channels) == 0 {
		if req.Mood == "" {
			writeError(w, http.StatusBadRequest, "channels or mood required")
			return
		}
		if req.Duration <= 0 {
			req.Duration = 10
		}
		req.Channels = neuro.SimulateEEG(req.Mood, req.Duration, req.SFreq)
	}

	va := neuro.Process(req.Channels, req.SFreq)
	writeJSON(w, http.StatusOK, map[string]any{
		"valence_arousal": va,
		"quadrant":        neuro.QuadrantFor(va.Valence, va.Arousal),
		"mapping":         neuro.MappingFor(va.Valence, va.Arousal),
	})
}
