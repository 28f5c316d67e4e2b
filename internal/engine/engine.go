package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aetherlab/aether/internal/store"
)

// Engine orchestrates rule retrieval, formula generation, correction, and
// scoring. The rule set and retriever are fixed at construction: New is the
// single initialization point, and an Engine is immutable and safe for
// concurrent use across requests afterwards.
type Engine struct {
	db        *store.DB
	rules     []store.PhysioRule
	retriever Retriever
	mode      string
}

// Options configures retrieval backend selection.
type Options struct {
	OllamaURL      string
	EmbeddingModel string
	DisableVector  bool // force the keyword fallback
}

// New loads the rule set from the store and selects a retrieval strategy.
// The vector backend is probed exactly once; if it is unreachable (or
// disabled) the engine uses keyword retrieval for the life of the process.
func New(ctx context.Context, db *store.DB, opts Options) (*Engine, error) {
	rules, err := db.AllRules()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	e := &Engine{db: db, rules: rules}

	url := opts.OllamaURL
	if url == "" {
		url = "http://localhost:11434"
	}
	model := opts.EmbeddingModel
	if model == "" {
		model = "nomic-embed-text"
	}

	if !opts.DisableVector && ProbeOllama(url, model) {
		embedder := NewOllamaEmbedder(url, model, 768)
		retriever, err := NewVectorRetriever(ctx, db, embedder, rules)
		if err != nil {
			// Backend construction failing after a successful probe still
			// degrades to keyword retrieval rather than failing startup.
			log.Printf("retrieval: vector backend init failed (%v)", err)
			e.retriever = NewKeywordRetriever(rules)
			e.mode = "keyword"
		} else {
			e.retriever = retriever
			e.mode = "vector"
			log.Printf("retrieval: vector backend ready (%s, %d rules)", embedder.Model(), len(rules))
		}
	} else {
		e.retriever = NewKeywordRetriever(rules)
		e.mode = "keyword"
	}

	return e, nil
}

// Rules returns the immutable rule set in store order.
func (e *Engine) Rules() []store.PhysioRule { return e.rules }

// RetrievalMode reports which retrieval strategy was selected at startup.
func (e *Engine) RetrievalMode() string { return e.mode }

// ApplicableRules returns the rules whose conditions hold for the profile,
// exact and unranked, in store order.
func (e *Engine) ApplicableRules(profile UserProfile) []store.PhysioRule {
	return Applicable(e.rules, profile)
}

// QueryRules performs ranked, bounded retrieval for exploratory use.
func (e *Engine) QueryRules(ctx context.Context, profile UserProfile, limit int) ([]RetrievedRule, error) {
	return e.retriever.Query(ctx, profile, limit)
}

// Generate produces a personalized formula: baseline from the catalog,
// physiological corrections from the applicable rules, then derived scores.
func (e *Engine) Generate(profile UserProfile, preferences []string, valence, arousal *float64) (*Formula, error) {
	formula, err := e.buildBaseline(profile, preferences, valence, arousal)
	if err != nil {
		return nil, err
	}

	ApplyCorrections(formula, e.ApplicableRules(profile))

	formula.NotePyramid = NotePyramid(formula.Ingredients)
	formula.SustainabilityScore = SustainabilityScore(formula.Ingredients)
	return formula, nil
}

// SaveSnapshot persists a generated formula to the store. The formula value
// itself stays request-owned; the snapshot is an independent record.
func (e *Engine) SaveSnapshot(f *Formula) error {
	ingredients, err := json.Marshal(f.Ingredients)
	if err != nil {
		return fmt.Errorf("marshal formula ingredients: %w", err)
	}
	corrections, err := json.Marshal(f.Corrections)
	if err != nil {
		return fmt.Errorf("marshal correction log: %w", err)
	}

	return e.db.SaveFormula(&store.FormulaRecord{
		ID:                  f.ID,
		Name:                f.Name,
		Description:         f.Description,
		IngredientsJSON:     ingredients,
		CorrectionsJSON:     corrections,
		SustainabilityScore: f.SustainabilityScore,
		NoteTop:             f.NotePyramid.Top,
		NoteMiddle:          f.NotePyramid.Middle,
		NoteBase:            f.NotePyramid.Base,
		IFRACompliant:       f.IFRACompliant,
	})
}
