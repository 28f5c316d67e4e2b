package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "ingredients: fragrance ingredient catalog",
		SQL: `
CREATE TABLE ingredients (
    id                   TEXT PRIMARY KEY,
    position             INTEGER NOT NULL UNIQUE,
    name                 TEXT NOT NULL,
    smiles               TEXT NOT NULL,
    note_type            TEXT NOT NULL CHECK (note_type IN ('top', 'middle', 'base')),
    family               TEXT NOT NULL,
    logp                 REAL NOT NULL,
    molecular_weight     REAL NOT NULL,
    is_sustainable       INTEGER NOT NULL DEFAULT 0,
    source               TEXT NOT NULL,
    sustainability_score INTEGER NOT NULL,
    ifra_restricted      INTEGER NOT NULL DEFAULT 0,
    allergen             INTEGER NOT NULL DEFAULT 0,
    max_concentration    REAL,
    descriptors          TEXT NOT NULL DEFAULT '[]',
    origin               TEXT,
    created_at           INTEGER NOT NULL
);

CREATE INDEX idx_ingredients_note_type ON ingredients(note_type);
CREATE INDEX idx_ingredients_family    ON ingredients(family);
`,
	},
	{
		Version:     2,
		Description: "physio_rules: single-condition correction rules",
		SQL: `
CREATE TABLE physio_rules (
    id          TEXT PRIMARY KEY,
    position    INTEGER NOT NULL UNIQUE,
    parameter   TEXT NOT NULL,
    operator    TEXT NOT NULL CHECK (operator IN ('<', '>', '==', 'contains')),
    value       TEXT NOT NULL,
    target      TEXT NOT NULL,
    action      TEXT NOT NULL,
    factor      REAL,
    threshold   TEXT,
    substitute  TEXT,
    reasoning   TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "rule_vectors: embedding vectors for similarity retrieval",
		SQL: `
CREATE TABLE rule_vectors (
    rule_id    TEXT PRIMARY KEY,
    embedding  BLOB NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (rule_id) REFERENCES physio_rules(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     4,
		Description: "formulas: generated formula snapshots",
		SQL: `
CREATE TABLE formulas (
    id                   TEXT PRIMARY KEY,
    name                 TEXT NOT NULL,
    description          TEXT NOT NULL DEFAULT '',
    ingredients          TEXT NOT NULL,
    corrections          TEXT NOT NULL DEFAULT '[]',
    sustainability_score REAL NOT NULL DEFAULT 0,
    note_top             REAL NOT NULL DEFAULT 0,
    note_middle          REAL NOT NULL DEFAULT 0,
    note_base            REAL NOT NULL DEFAULT 0,
    ifra_compliant       INTEGER NOT NULL DEFAULT 1,
    created_at           INTEGER NOT NULL
);

CREATE INDEX idx_formulas_created ON formulas(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
