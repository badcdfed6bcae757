package repository

import (
	"database/sql"

	"github.com/unclebandit/mailpulse-backend/internal/model"
)

type WarmingRepositoryInterface interface {
	GetState(orgID int, senderDomain string) (*model.WarmingState, error)

	// CountQueuedToday counts jobs created today for the sender domain.
	// This is the warming limiter's "used" figure; it is a dedicated read
	// rather than a counter the dispatch worker would have to bump on the
	// hot send path.
	CountQueuedToday(senderDomain string) (int, error)
}

type WarmingRepository struct {
	DB *sql.DB
}

// GetState fetches the warming row for an org. When senderDomain is empty
// the org's single warming row (if any) is returned. Nil means no warmup is
// configured for this org/domain.
func (r *WarmingRepository) GetState(orgID int, senderDomain string) (*model.WarmingState, error) {
	query := `
        SELECT id, org_id, sender_domain, active, started_at, completed_at
        FROM warming_states
        WHERE org_id=$1
    `
	args := []interface{}{orgID}
	if senderDomain != "" {
		query += ` AND sender_domain=$2`
		args = append(args, senderDomain)
	}
	query += ` LIMIT 1`

	var s model.WarmingState
	err := r.DB.QueryRow(query, args...).Scan(
		&s.ID, &s.OrgID, &s.SenderDomain, &s.Active, &s.StartedAt, &s.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *WarmingRepository) CountQueuedToday(senderDomain string) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM queue_jobs
        WHERE split_part(from_email, '@', 2) = $1
          AND created_at >= date_trunc('day', NOW())
    `
	var count int
	if err := r.DB.QueryRow(query, senderDomain).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ WarmingRepositoryInterface = (*WarmingRepository)(nil)
