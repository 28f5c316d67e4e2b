// Package server exposes the formula engine and catalog over an HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aetherlab/aether/internal/engine"
	"github.com/aetherlab/aether/internal/store"
)

// Server is the aether HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine, and version.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/formulas/generate", s.handleGenerateFormula)
		r.Post("/formulas/validate", s.handleValidateFormula)
		r.Get("/formulas", s.handleListFormulas)
		r.Get("/formulas/{formulaID}", s.handleGetFormula)

		r.Get("/rules", s.handleListRules)
		r.Post("/rules/applicable", s.handleApplicableRules)
		r.Post("/rules/query", s.handleQueryRules)

		r.Get("/ingredients", s.handleListIngredients)
		r.Post("/molecular/properties", s.handleMolecularProperties)

		r.Post("/calibration/profile", s.handleCalibrateProfile)
		r.Post("/calibration/eeg", s.handleCalibrateEEG)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"db":        dbOK,
		"db_path":   s.db.Path,
		"rules":     len(s.engine.Rules()),
		"retrieval": s.engine.RetrievalMode(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
