package model

import (
	"database/sql"
	"time"
)

// ClientContact represents a row in the client_contacts table. The client
// name is the canonical (post-unification) spelling.
type ClientContact struct {
	ID          int64          `json:"id"`
	ClientName  string         `json:"clientName"`
	ContactName sql.NullString `json:"contactName"`
	Email       sql.NullString `json:"email"`
	Phone       sql.NullString `json:"phone"`
	Notes       sql.NullString `json:"notes"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// GetAllContacts returns every stored contact keyed by client name.
func GetAllContacts(db *sql.DB) (map[string]ClientContact, error) {
	rows, err := db.Query(`SELECT id, client_name, contact_name, email, phone, notes, created_at, updated_at FROM client_contacts ORDER BY client_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make(map[string]ClientContact)
	for rows.Next() {
		var c ClientContact
		if err := rows.Scan(&c.ID, &c.ClientName, &c.ContactName, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts[c.ClientName] = c
	}
	return contacts, rows.Err()
}

// GetContactByClient returns the contact for one client, or sql.ErrNoRows.
func GetContactByClient(db *sql.DB, clientName string) (ClientContact, error) {
	var c ClientContact
	err := db.QueryRow(
		`SELECT id, client_name, contact_name, email, phone, notes, created_at, updated_at FROM client_contacts WHERE client_name = ?`,
		clientName,
	).Scan(&c.ID, &c.ClientName, &c.ContactName, &c.Email, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// UpsertContact inserts or replaces the contact data for a client.
func UpsertContact(db *sql.DB, c ClientContact) error {
	query := `
		INSERT INTO client_contacts (client_name, contact_name, email, phone, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_name) DO UPDATE SET
			contact_name = excluded.contact_name,
			email = excluded.email,
			phone = excluded.phone,
			notes = excluded.notes,
			updated_at = excluded.updated_at`

	_, err := db.Exec(query, c.ClientName, c.ContactName, c.Email, c.Phone, c.Notes, time.Now())
	return err
}
