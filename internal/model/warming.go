// internal/model/warming.go
package model

import "time"

// WarmingState is the per sending-domain warmup governor row. The daily cap
// for the current day is derived from StartedAt and the ramp schedule, not
// stored, so a missed cron tick cannot freeze the ramp.
type WarmingState struct {
	ID           int        `db:"id" json:"id"`
	OrgID        int        `db:"org_id" json:"org_id"`
	SenderDomain string     `db:"sender_domain" json:"sender_domain"`
	Active       bool       `db:"active" json:"active"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
