// internal/model/campaign.go
package model

import "time"

// Campaign statuses. A scheduled campaign is picked up by the scheduler once
// its send time passes, moves to sending while the pipeline queues jobs, and
// ends in sent or error. The scheduler never re-picks a campaign once its
// status has left "scheduled".
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusError     = "error"
)

type Campaign struct {
	ID          int        `db:"id" json:"id"`
	OrgID       int        `db:"org_id" json:"org_id"`
	Name        string     `db:"name" json:"name"`
	Subject     string     `db:"subject" json:"subject"`
	FromName    string     `db:"from_name" json:"from_name"`
	FromEmail   string     `db:"from_email" json:"from_email"`
	Status      string     `db:"status" json:"status"`
	HTMLBody    string     `db:"html_body" json:"html_body"`
	ListID      int        `db:"list_id" json:"list_id"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
