package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// RuleVector holds an embedding for a physio rule document.
type RuleVector struct {
	RuleID     string
	Embedding  []float64
	Model      string
	Dimensions int
	CreatedAt  int64
}

// encodeEmbedding converts a []float64 to a binary BLOB (8 bytes per float64).
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding converts a binary BLOB back to []float64.
func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// SaveRuleVector stores or replaces the embedding for a rule.
func (db *DB) SaveRuleVector(ruleID string, embedding []float64, model string) error {
	now := time.Now().UnixMilli()
	blob := encodeEmbedding(embedding)

	_, err := db.Exec(`
		INSERT INTO rule_vectors (rule_id, embedding, model, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET embedding = ?, model = ?, dimensions = ?, created_at = ?
	`, ruleID, blob, model, len(embedding), now,
		blob, model, len(embedding), now)
	if err != nil {
		return fmt.Errorf("save rule vector: %w", err)
	}
	return nil
}

// GetRuleVector returns the embedding for a rule, or nil if not found.
func (db *DB) GetRuleVector(ruleID string) (*RuleVector, error) {
	var v RuleVector
	var blob []byte

	err := db.QueryRow(`
		SELECT rule_id, embedding, model, dimensions, created_at
		FROM rule_vectors WHERE rule_id = ?
	`, ruleID).Scan(&v.RuleID, &blob, &v.Model, &v.Dimensions, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule vector: %w", err)
	}
	v.Embedding = decodeEmbedding(blob)
	return &v, nil
}

// AllRuleVectors returns all stored rule vectors.
func (db *DB) AllRuleVectors() ([]RuleVector, error) {
	rows, err := db.Query(`
		SELECT rule_id, embedding, model, dimensions, created_at
		FROM rule_vectors
	`)
	if err != nil {
		return nil, fmt.Errorf("all rule vectors: %w", err)
	}
	defer rows.Close()

	var records []RuleVector
	for rows.Next() {
		var v RuleVector
		var blob []byte
		if err := rows.Scan(&v.RuleID, &blob, &v.Model, &v.Dimensions, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rule vector: %w", err)
		}
		v.Embedding = decodeEmbedding(blob)
		records = append(records, v)
	}
	return records, rows.Err()
}

// DeleteRuleVector removes the embedding for a rule.
func (db *DB) DeleteRuleVector(ruleID string) error {
	_, err := db.Exec("DELETE FROM rule_vectors WHERE rule_id = ?", ruleID)
	if err != nil {
		return fmt.Errorf("delete rule vector: %w", err)
	}
	return nil
}
