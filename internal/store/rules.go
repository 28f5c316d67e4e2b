package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Condition is a single-predicate rule trigger.
type Condition struct {
	Parameter string `json:"parameter"`
	Operator  string `json:"operator"` // "<", ">", "==", "contains"
	Value     any    `json:"value"`
}

// PhysioRule is a physiological correction directive. Rules are immutable
// once imported and are always enumerated in document order.
type PhysioRule struct {
	ID         string             `json:"id"`
	Condition  Condition          `json:"condition"`
	Target     string             `json:"target"`
	Action     string             `json:"action"`
	Factor     *float64           `json:"factor,omitempty"`
	Threshold  map[string]float64 `json:"threshold,omitempty"`
	Substitute map[string]string  `json:"substitute,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

var validOperators = map[string]bool{
	"<": true, ">": true, "==": true, "contains": true,
}

// ImportRules loads correction rules from a JSON document of the form
// {"rules": [...]} and syncs the table to it in document order. Rules
// dropped from the document are removed, cascading their cached vectors;
// retained rules keep theirs. A missing file leaves the rule set untouched
// and is not an error; a malformed individual record is.
func (db *DB) ImportRules(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read rules: %w", err)
	}

	var doc struct {
		Rules []PhysioRule `json:"rules"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse rules: %w", err)
	}
	for i, rule := range doc.Rules {
		if err := validateRule(rule); err != nil {
			return 0, fmt.Errorf("rule %d (%s): %w", i, rule.ID, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("import rules: %w", err)
	}
	defer tx.Rollback()

	// Stage existing rows at negative positions so a reordered document
	// cannot collide with the UNIQUE position constraint mid-upsert.
	if _, err := tx.Exec("UPDATE physio_rules SET position = -position - 1"); err != nil {
		return 0, fmt.Errorf("stage rule positions: %w", err)
	}
	for i, rule := range doc.Rules {
		if err := upsertRule(tx, i, rule); err != nil {
			return 0, err
		}
	}
	if _, err := tx.Exec("DELETE FROM physio_rules WHERE position < 0"); err != nil {
		return 0, fmt.Errorf("prune rules: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import rules: %w", err)
	}
	return len(doc.Rules), nil
}

func validateRule(r PhysioRule) error {
	switch {
	case r.ID == "":
		return fmt.Errorf("missing id")
	case r.Condition.Parameter == "":
		return fmt.Errorf("missing condition.parameter")
	case r.Condition.Operator == "":
		return fmt.Errorf("missing condition.operator")
	case !validOperators[r.Condition.Operator]:
		return fmt.Errorf("invalid operator %q", r.Condition.Operator)
	case r.Condition.Value == nil:
		return fmt.Errorf("missing condition.value")
	case r.Target == "":
		return fmt.Errorf("missing target")
	case r.Action == "":
		return fmt.Errorf("missing action")
	}
	return nil
}

func upsertRule(tx *sql.Tx, position int, r PhysioRule) error {
	value, err := json.Marshal(r.Condition.Value)
	if err != nil {
		return fmt.Errorf("marshal condition value for %s: %w", r.ID, err)
	}

	var threshold, substitute any
	if r.Threshold != nil {
		b, err := json.Marshal(r.Threshold)
		if err != nil {
			return fmt.Errorf("marshal threshold for %s: %w", r.ID, err)
		}
		threshold = string(b)
	}
	if r.Substitute != nil {
		b, err := json.Marshal(r.Substitute)
		if err != nil {
			return fmt.Errorf("marshal substitute for %s: %w", r.ID, err)
		}
		substitute = string(b)
	}

	now := time.Now().UnixMilli()
	_, err = tx.Exec(`
		INSERT INTO physio_rules (
			id, position, parameter, operator, value, target, action,
			factor, threshold, substitute, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			parameter = excluded.parameter,
			operator = excluded.operator,
			value = excluded.value,
			target = excluded.target,
			action = excluded.action,
			factor = excluded.factor,
			threshold = excluded.threshold,
			substitute = excluded.substitute,
			reasoning = excluded.reasoning
	`, r.ID, position, r.Condition.Parameter, r.Condition.Operator, string(value),
		r.Target, r.Action, r.Factor, threshold, substitute, r.Reasoning, now)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", r.ID, err)
	}
	return nil
}

// AllRules returns every rule in import order.
func (db *DB) AllRules() ([]PhysioRule, error) {
	rows, err := db.Query(`
		SELECT id, parameter, operator, value, target, action,
		       factor, threshold, substitute, reasoning
		FROM physio_rules ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []PhysioRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// RuleByID returns one rule, or nil if not found.
func (db *DB) RuleByID(id string) (*PhysioRule, error) {
	row := db.QueryRow(`
		SELECT id, parameter, operator, value, target, action,
		       factor, threshold, substitute, reasoning
		FROM physio_rules WHERE id = ?
	`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return &rule, nil
}

func scanRule(row interface{ Scan(...any) error }) (PhysioRule, error) {
	var r PhysioRule
	var value string
	var factor sql.NullFloat64
	var threshold, substitute sql.NullString

	err := row.Scan(&r.ID, &r.Condition.Parameter, &r.Condition.Operator, &value,
		&r.Target, &r.Action, &factor, &threshold, &substitute, &r.Reasoning)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal([]byte(value), &r.Condition.Value); err != nil {
		return r, fmt.Errorf("decode condition value for %s: %w", r.ID, err)
	}
	if factor.Valid {
		f := factor.Float64
		r.Factor = &f
	}
	if threshold.Valid {
		if err := json.Unmarshal([]byte(threshold.String), &r.Threshold); err != nil {
			return r, fmt.Errorf("decode threshold for %s: %w", r.ID, err)
		}
	}
	if substitute.Valid {
		if err := json.Unmarshal([]byte(substitute.String), &r.Substitute); err != nil {
			return r, fmt.Errorf("decode substitute for %s: %w", r.ID, err)
		}
	}
	return r, nil
}
