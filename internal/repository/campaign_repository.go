package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(id int) (*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error

	// DueScheduled returns campaigns in "scheduled" status whose send time
	// has passed, oldest scheduled time first.
	DueScheduled(now time.Time) ([]*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, org_id, name, subject, from_name, from_email, status, html_body,
        list_id, scheduled_at, created_at, updated_at`

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Subject, &c.FromName, &c.FromEmail, &c.Status,
		&c.HTMLBody, &c.ListID, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) DueScheduled(now time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE status='scheduled' AND scheduled_at <= $1
        ORDER BY scheduled_at ASC`
	rows, err := r.DB.Query(query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(
			&c.ID, &c.OrgID, &c.Name, &c.Subject, &c.FromName, &c.FromEmail, &c.Status,
			&c.HTMLBody, &c.ListID, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
