// internal/model/recipient.go
package model

import "time"

// Recipient is the per-contact delivery record of a campaign. The dispatch
// worker stamps sent/error on it best-effort after a send attempt; the
// tracking endpoints flip the open/click fields on first occurrence.
type Recipient struct {
	ID        int        `db:"id" json:"id"`
	CampaignID int       `db:"campaign_id" json:"campaign_id"`
	ContactID int        `db:"contact_id" json:"contact_id"`
	Status    string     `db:"status" json:"status"` // pending, sent, error
	LastError string     `db:"last_error,omitempty" json:"last_error,omitempty"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	OpenedAt  *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
