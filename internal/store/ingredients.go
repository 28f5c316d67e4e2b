package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Ingredient is one catalog entry. Catalog rows are read-only once imported;
// formula generation never mutates them.
type Ingredient struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SMILES              string   `json:"smiles"`
	NoteType            string   `json:"note_type"` // "top", "middle", "base"
	Family              string   `json:"family"`
	LogP                float64  `json:"logp"`
	MolecularWeight     float64  `json:"molecular_weight"`
	IsSustainable       bool     `json:"is_sustainable"`
	Source              string   `json:"source"` // "natural", "bio-based", "upcycled", "synthetic"
	SustainabilityScore int      `json:"sustainability_score"`
	IFRARestricted      bool     `json:"ifra_restricted"`
	Allergen            bool     `json:"allergen"`
	MaxConcentration    *float64 `json:"max_concentration,omitempty"`
	Descriptors         []string `json:"descriptors"`
	Origin              string   `json:"origin,omitempty"`
}

// ImportIngredients loads the catalog from a JSON document of the form
// {"ingredients": [...]} and syncs the table to it: entries are upserted in
// document order and rows absent from the document are removed. A missing
// file is not an error: the catalog is left untouched.
func (db *DB) ImportIngredients(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read ingredients: %w", err)
	}

	var doc struct {
		Ingredients []Ingredient `json:"ingredients"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse ingredients: %w", err)
	}
	for i, ing := range doc.Ingredients {
		if err := validateIngredient(ing); err != nil {
			return 0, fmt.Errorf("ingredient %d (%s): %w", i, ing.ID, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("import ingredients: %w", err)
	}
	defer tx.Rollback()

	// Stage existing rows at negative positions first: a reordered document
	// would otherwise collide with the UNIQUE position still held by a row
	// not yet upserted.
	if _, err := tx.Exec("UPDATE ingredients SET position = -position - 1"); err != nil {
		return 0, fmt.Errorf("stage ingredient positions: %w", err)
	}
	for i, ing := range doc.Ingredients {
		if err := upsertIngredient(tx, i, ing); err != nil {
			return 0, err
		}
	}
	// Anything still staged was dropped from the document.
	if _, err := tx.Exec("DELETE FROM ingredients WHERE position < 0"); err != nil {
		return 0, fmt.Errorf("prune ingredients: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import ingredients: %w", err)
	}
	return len(doc.Ingredients), nil
}

func validateIngredient(ing Ingredient) error {
	switch {
	case ing.ID == "":
		return fmt.Errorf("missing id")
	case ing.Name == "":
		return fmt.Errorf("missing name")
	case ing.NoteType != "top" && ing.NoteType != "middle" && ing.NoteType != "base":
		return fmt.Errorf("invalid note_type %q", ing.NoteType)
	case ing.Family == "":
		return fmt.Errorf("missing family")
	}
	return nil
}

func upsertIngredient(tx *sql.Tx, position int, ing Ingredient) error {
	descriptors, err := json.Marshal(ing.Descriptors)
	if err != nil {
		return fmt.Errorf("marshal descriptors for %s: %w", ing.ID, err)
	}
	now := time.Now().UnixMilli()

	_, err = tx.Exec(`
		INSERT INTO ingredients (
			id, position, name, smiles, note_type, family, logp, molecular_weight,
			is_sustainable, source, sustainability_score, ifra_restricted, allergen,
			max_concentration, descriptors, origin, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			smiles = excluded.smiles,
			note_type = excluded.note_type,
			family = excluded.family,
			logp = excluded.logp,
			molecular_weight = excluded.molecular_weight,
			is_sustainable = excluded.is_sustainable,
			source = excluded.source,
			sustainability_score = excluded.sustainability_score,
			ifra_restricted = excluded.ifra_restricted,
			allergen = excluded.allergen,
			max_concentration = excluded.max_concentration,
			descriptors = excluded.descriptors,
			origin = excluded.origin
	`, ing.ID, position, ing.Name, ing.SMILES, ing.NoteType, ing.Family, ing.LogP,
		ing.MolecularWeight, ing.IsSustainable, ing.Source, ing.SustainabilityScore,
		ing.IFRARestricted, ing.Allergen, ing.MaxConcentration, string(descriptors),
		nullIfEmpty(ing.Origin), now)
	if err != nil {
		return fmt.Errorf("upsert ingredient %s: %w", ing.ID, err)
	}
	return nil
}

const ingredientCols = `id, name, smiles, note_type, family, logp, molecular_weight,
	is_sustainable, source, sustainability_score, ifra_restricted, allergen,
	max_concentration, descriptors, origin`

func scanIngredient(row interface{ Scan(...any) error }) (Ingredient, error) {
	var ing Ingredient
	var descriptors string
	var origin sql.NullString
	err := row.Scan(&ing.ID, &ing.Name, &ing.SMILES, &ing.NoteType, &ing.Family,
		&ing.LogP, &ing.MolecularWeight, &ing.IsSustainable, &ing.Source,
		&ing.SustainabilityScore, &ing.IFRARestricted, &ing.Allergen,
		&ing.MaxConcentration, &descriptors, &origin)
	if err != nil {
		return ing, err
	}
	if err := json.Unmarshal([]byte(descriptors), &ing.Descriptors); err != nil {
		return ing, fmt.Errorf("decode descriptors for %s: %w", ing.ID, err)
	}
	ing.Origin = origin.String
	return ing, nil
}

func (db *DB) queryIngredients(where string, args ...any) ([]Ingredient, error) {
	q := "SELECT " + ingredientCols + " FROM ingredients"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY position"

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	var out []Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// AllIngredients returns the full catalog in import order.
func (db *DB) AllIngredients() ([]Ingredient, error) {
	return db.queryIngredients("")
}

// IngredientByID returns one catalog entry, or nil if not found.
func (db *DB) IngredientByID(id string) (*Ingredient, error) {
	row := db.QueryRow("SELECT "+ingredientCols+" FROM ingredients WHERE id = ?", id)
	ing, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient %s: %w", id, err)
	}
	return &ing, nil
}

// IngredientsByNoteType returns catalog entries for one note type.
func (db *DB) IngredientsByNoteType(noteType string) ([]Ingredient, error) {
	return db.queryIngredients("note_type = ?", noteType)
}

// IngredientsByFamily returns catalog entries for one fragrance family.
func (db *DB) IngredientsByFamily(family string) ([]Ingredient, error) {
	return db.queryIngredients("family = ?", family)
}

// SustainableIngredients returns flagged-sustainable entries at or above minScore.
func (db *DB) SustainableIngredients(minScore int) ([]Ingredient, error) {
	return db.queryIngredients("is_sustainable = 1 AND sustainability_score >= ?", minScore)
}

// Fixatives returns entries whose logP is at or above the threshold.
func (db *DB) Fixatives(minLogP float64) ([]Ingredient, error) {
	return db.queryIngredients("logp >= ?", minLogP)
}

// NonAllergenic returns entries not flagged as declared allergens.
func (db *DB) NonAllergenic() ([]Ingredient, error) {
	return db.queryIngredients("allergen = 0")
}

// SearchByDescriptor returns entries with a descriptor containing the given
// token, case-insensitively.
func (db *DB) SearchByDescriptor(descriptor string) ([]Ingredient, error) {
	all, err := db.AllIngredients()
	if err != nil {
		return nil, err
	}
	token := strings.ToLower(descriptor)
	var out []Ingredient
	for _, ing := range all {
		for _, d := range ing.Descriptors {
			if strings.Contains(strings.ToLower(d), token) {
				out = append(out, ing)
				break
			}
		}
	}
	return out, nil
}

// SafeForAllergies returns entries safe for a user with the given allergies.
// Exclusion is purely name-token based: the declared allergen flag on its
// own never excludes an entry, only a name containing an allergy token does.
func (db *DB) SafeForAllergies(allergies []string) ([]Ingredient, error) {
	all, err := db.AllIngredients()
	if err != nil {
		return nil, err
	}

	tokens := make([]string, len(allergies))
	for i, a := range allergies {
		tokens[i] = strings.ToLower(a)
	}

	var safe []Ingredient
	for _, ing := range all {
		name := strings.ToLower(ing.Name)
		ok := true
		for _, tok := range tokens {
			if tok != "" && strings.Contains(name, tok) {
				ok = false
				break
			}
		}
		if ok {
			safe = append(safe, ing)
		}
	}
	return safe, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
