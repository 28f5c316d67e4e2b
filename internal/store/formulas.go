package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FormulaRecord is a persisted snapshot of a generated formula. The
// ingredient list and correction log are stored as JSON produced by the
// engine; the store does not interpret them.
type FormulaRecord struct {
	ID                  string          `json:"formula_id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	IngredientsJSON     json.RawMessage `json:"ingredients"`
	CorrectionsJSON     json.RawMessage `json:"corrections_applied"`
	SustainabilityScore float64         `json:"sustainability_score"`
	NoteTop             float64         `json:"note_top"`
	NoteMiddle          float64         `json:"note_middle"`
	NoteBase            float64         `json:"note_base"`
	IFRACompliant       bool            `json:"ifra_compliant"`
	CreatedAt           int64           `json:"created_at"`
}

// SaveFormula persists a formula snapshot.
func (db *DB) SaveFormula(rec *FormulaRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO formulas (
			id, name, description, ingredients, corrections,
			sustainability_score, note_top, note_middle, note_base,
			ifra_compliant, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.Description, string(rec.IngredientsJSON),
		string(rec.CorrectionsJSON), rec.SustainabilityScore,
		rec.NoteTop, rec.NoteMiddle, rec.NoteBase, rec.IFRACompliant, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save formula: %w", err)
	}
	return nil
}

// GetFormula returns one persisted formula, or nil if not found.
func (db *DB) GetFormula(id string) (*FormulaRecord, error) {
	var rec FormulaRecord
	var ingredients, corrections string

	err := db.QueryRow(`
		SELECT id, name, description, ingredients, corrections,
		       sustainability_score, note_top, note_middle, note_base,
		       ifra_compliant, created_at
		FROM formulas WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Name, &rec.Description, &ingredients, &corrections,
		&rec.SustainabilityScore, &rec.NoteTop, &rec.NoteMiddle, &rec.NoteBase,
		&rec.IFRACompliant, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get formula: %w", err)
	}
	rec.IngredientsJSON = []byte(ingredients)
	rec.CorrectionsJSON = []byte(corrections)
	return &rec, nil
}

// ListFormulas returns the most recent formula snapshots, newest first.
func (db *DB) ListFormulas(limit int) ([]FormulaRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, name, description, ingredients, corrections,
		       sustainability_score, note_top, note_middle, note_base,
		       ifra_compliant, created_at
		FROM formulas ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list formulas: %w", err)
	}
	defer rows.Close()

	var out []FormulaRecord
	for rows.Next() {
		var rec FormulaRecord
		var ingredients, corrections string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &ingredients,
			&corrections, &rec.SustainabilityScore, &rec.NoteTop, &rec.NoteMiddle,
			&rec.NoteBase, &rec.IFRACompliant, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan formula: %w", err)
		}
		rec.IngredientsJSON = []byte(ingredients)
		rec.CorrectionsJSON = []byte(corrections)
		out = append(out, rec)
	}
	return out, rows.Err()
}
