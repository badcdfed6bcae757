// internal/model/queue_job.go
package model

import "time"

// Queue job lifecycle states. A job moves strictly forward through
// pending/scheduled -> sending -> sent | pending(retry) | error.
const (
	JobStatusPending   = "pending"
	JobStatusScheduled = "scheduled"
	JobStatusSending   = "sending"
	JobStatusSent      = "sent"
	JobStatusError     = "error"
)

// QueueJob is one outbound email tracked through the dispatch queue.
// LockedBy/LockedAt are non-null only while a worker holds the job in
// "sending"; sent and error rows always have them cleared.
type QueueJob struct {
	ID          int        `db:"id" json:"id"`
	CampaignID  *int       `db:"campaign_id" json:"campaign_id,omitempty"`
	RecipientID *int       `db:"recipient_id" json:"recipient_id,omitempty"`
	ToEmail     string     `db:"to_email" json:"to_email"`
	FromName    string     `db:"from_name" json:"from_name"`
	FromEmail   string     `db:"from_email" json:"from_email"`
	Subject     string     `db:"subject" json:"subject"`
	HTMLBody    string     `db:"html_body" json:"html_body"`
	Status      string     `db:"status" json:"status"`
	Attempts    int        `db:"attempts" json:"attempts"`
	LastError   string     `db:"last_error,omitempty" json:"last_error,omitempty"`
	LockedBy    *string    `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt    *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}
