package model

import (
	"database/sql"
	"time"
)

// UnificationRule represents a row in the unification_rules table: one client
// name spelling to fold into its canonical form.
type UnificationRule struct {
	ID            int64     `json:"id"`
	VariantName   string    `json:"variantName"`
	CanonicalName string    `json:"canonicalName"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GetAllRules returns the saved rules as a variant -> canonical map, the form
// the unifier consumes.
func GetAllRules(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT variant_name, canonical_name FROM unification_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make(map[string]string)
	for rows.Next() {
		var variant, canonical string
		if err := rows.Scan(&variant, &canonical); err != nil {
			return nil, err
		}
		rules[variant] = canonical
	}
	return rules, rows.Err()
}

// ListRules returns the saved rules with their metadata, newest first.
func ListRules(db *sql.DB) ([]UnificationRule, error) {
	rows, err := db.Query(`SELECT id, variant_name, canonical_name, created_at FROM unification_rules ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []UnificationRule
	for rows.Next() {
		var r UnificationRule
		if err := rows.Scan(&r.ID, &r.VariantName, &r.CanonicalName, &r.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SaveRules stores a batch of rules in one transaction, replacing any previous
// mapping for the same variant.
func SaveRules(db *sql.DB, rules map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO unification_rules (variant_name, canonical_name)
		VALUES (?, ?)
		ON CONFLICT(variant_name) DO UPDATE SET canonical_name = excluded.canonical_name`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for variant, canonical := range rules {
		if variant == "" || canonical == "" || variant == canonical {
			continue
		}
		if _, err := stmt.Exec(variant, canonical); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteRule removes one rule by id.
func DeleteRule(db *sql.DB, id int64) error {
	_, err := db.Exec(`DELETE FROM unification_rules WHERE id = ?`, id)
	return err
}
