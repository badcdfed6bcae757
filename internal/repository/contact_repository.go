package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/mailpulse-backend/internal/model"
)

// ContactRepositoryInterface defines the contact reads used by the send
// pipeline and the automation engine's trigger evaluation.
type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	ListSubscribedByList(listID int) ([]model.Contact, error)
	ListCreatedSince(since time.Time) ([]model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, email, first_name, last_name, status, list_id, created_at`

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	row := r.DB.QueryRow(query, id)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Status, &c.ListID, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

// ListSubscribedByList fetches subscribed contacts belonging to a list.
func (r *ContactRepository) ListSubscribedByList(listID int) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + `
        FROM contacts
        WHERE list_id=$1 AND status='subscribed'
        ORDER BY id ASC`
	return r.listContacts(query, listID)
}

// ListCreatedSince fetches subscribed contacts created at or after since.
// Used by the contact_added automation trigger.
func (r *ContactRepository) ListCreatedSince(since time.Time) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + `
        FROM contacts
        WHERE created_at >= $1 AND status='subscribed'
        ORDER BY id ASC`
	return r.listContacts(query, since)
}

func (r *ContactRepository) listContacts(query string, args ...interface{}) ([]model.Contact, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Status, &c.ListID, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
