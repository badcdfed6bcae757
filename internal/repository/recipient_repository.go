package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/mailpulse-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	Create(campaignID, contactID int) (*model.Recipient, error)
	GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error)
	MarkSent(id int, sentAt time.Time) error
	MarkError(id int, lastError string) error
	MarkOpened(id int, openedAt time.Time) (bool, error)
	MarkClicked(id int, clickedAt time.Time) (bool, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, campaign_id, contact_id, status, last_error,
        sent_at, opened_at, clicked_at, created_at`

// Create is an idempotent insert: if a recipient record already exists for
// the (campaign, contact) pair, the existing one is returned instead.
func (r *RecipientRepository) Create(campaignID, contactID int) (*model.Recipient, error) {
	existing, err := r.GetByCampaignAndContact(campaignID, contactID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	query := `
        INSERT INTO campaign_recipients (campaign_id, contact_id, status, created_at)
        VALUES ($1, $2, 'pending', NOW())
        RETURNING id, status, created_at
    `
	var rec model.Recipient
	err = r.DB.QueryRow(query, campaignID, contactID).Scan(&rec.ID, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.CampaignID = campaignID
	rec.ContactID = contactID
	return &rec, nil
}

func (r *RecipientRepository) GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + `
        FROM campaign_recipients
        WHERE campaign_id=$1 AND contact_id=$2`
	var rec model.Recipient
	err := r.DB.QueryRow(query, campaignID, contactID).Scan(
		&rec.ID, &rec.CampaignID, &rec.ContactID, &rec.Status, &rec.LastError,
		&rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *RecipientRepository) MarkSent(id int, sentAt time.Time) error {
	query := `UPDATE campaign_recipients SET status='sent', sent_at=$1, last_error='' WHERE id=$2`
	_, err := r.DB.Exec(query, sentAt, id)
	return err
}

func (r *RecipientRepository) MarkError(id int, lastError string) error {
	query := `UPDATE campaign_recipients SET status='error', last_error=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, lastError, id)
	return err
}

// MarkOpened flips the open flag on first occurrence only. Returns whether
// this call was the first one.
func (r *RecipientRepository) MarkOpened(id int, openedAt time.Time) (bool, error) {
	query := `UPDATE campaign_recipients SET opened_at=$1 WHERE id=$2 AND opened_at IS NULL`
	res, err := r.DB.Exec(query, openedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkClicked flips the click flag on first occurrence only.
func (r *RecipientRepository) MarkClicked(id int, clickedAt time.Time) (bool, error) {
	query := `UPDATE campaign_recipients SET clicked_at=$1 WHERE id=$2 AND clicked_at IS NULL`
	res, err := r.DB.Exec(query, clickedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
