package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/model"
)

// jobColumns is the column list scanned by scanJob.
const jobColumns = `id, campaign_id, recipient_id, to_email, from_name, from_email,
        subject, html_body, status, attempts, last_error, locked_by, locked_at,
        scheduled_at, created_at, sent_at`

type QueueJobRepositoryInterface interface {
	Create(job *model.QueueJob) error
	GetByID(id int) (*model.QueueJob, error)

	// Batch cycle operations
	PendingBatch(limit int) ([]*model.QueueJob, error)
	Claim(jobID int, workerID string, now time.Time) (bool, error)
	MarkSent(jobID int, sentAt time.Time) error
	MarkFailed(jobID int, lastError string, maxAttempts int) (attempts int, terminal bool, err error)
	ReleaseStaleLocks(olderThan time.Time) (int, error)
	ActivateScheduled(now time.Time) (int, error)

	StatusCounts(campaignID int) (map[string]int, error)
}

type QueueJobRepository struct {
	DB *sql.DB
}

// Create inserts a new queue job and fills in its generated id.
func (r *QueueJobRepository) Create(job *model.QueueJob) error {
	job.CreatedAt = time.Now()
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}
	query := `
        INSERT INTO queue_jobs
        (campaign_id, recipient_id, to_email, from_name, from_email, subject, html_body,
         status, attempts, last_error, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		job.CampaignID,
		job.RecipientID,
		job.ToEmail,
		job.FromName,
		job.FromEmail,
		job.Subject,
		job.HTMLBody,
		job.Status,
		job.Attempts,
		job.LastError,
		job.ScheduledAt,
		job.CreatedAt,
	).Scan(&job.ID)
}

// GetByID fetches a queue job by its ID.
func (r *QueueJobRepository) GetByID(id int) (*model.QueueJob, error) {
	query := `SELECT ` + jobColumns + ` FROM queue_jobs WHERE id=$1`
	job, err := scanJob(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// PendingBatch fetches up to limit pending jobs, oldest first.
func (r *QueueJobRepository) PendingBatch(limit int) ([]*model.QueueJob, error) {
	query := `SELECT ` + jobColumns + `
        FROM queue_jobs
        WHERE status='pending'
        ORDER BY created_at ASC
        LIMIT $1`
	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*model.QueueJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Claim atomically moves a job from pending to sending on behalf of workerID.
// The WHERE status='pending' condition is the sole duplicate-send guard under
// concurrent workers: if another worker got there first, zero rows are
// affected and Claim returns false.
func (r *QueueJobRepository) Claim(jobID int, workerID string, now time.Time) (bool, error) {
	query := `
        UPDATE queue_jobs
        SET status='sending', locked_by=$1, locked_at=$2
        WHERE id=$3 AND status='pending'
    `
	res, err := r.DB.Exec(query, workerID, now, jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkSent records a successful delivery and clears the lock fields.
func (r *QueueJobRepository) MarkSent(jobID int, sentAt time.Time) error {
	query := `
        UPDATE queue_jobs
        SET status='sent', sent_at=$1, last_error='', locked_by=NULL, locked_at=NULL
        WHERE id=$2
    `
	_, err := r.DB.Exec(query, sentAt, jobID)
	return err
}

// MarkFailed records one failed send attempt. The increment and the
// terminal-vs-retry decision happen in the store, against the stored attempt
// count, so a worker holding a stale batch-time snapshot can never undercount
// another worker's failures. Returns the new attempt count and whether the
// job reached its terminal error state.
func (r *QueueJobRepository) MarkFailed(jobID int, lastError string, maxAttempts int) (int, bool, error) {
	query := `
        UPDATE queue_jobs
        SET attempts = attempts + 1,
            last_error = $1,
            status = CASE WHEN attempts + 1 >= $2 THEN 'error' ELSE 'pending' END,
            locked_by = NULL, locked_at = NULL
        WHERE id = $3
        RETURNING attempts, status
    `
	var attempts int
	var status string
	if err := r.DB.QueryRow(query, lastError, maxAttempts, jobID).Scan(&attempts, &status); err != nil {
		return 0, false, err
	}
	return attempts, status == model.JobStatusError, nil
}

// ReleaseStaleLocks resets sending jobs whose lock is older than olderThan
// back to pending. Recovers jobs whose worker crashed mid-send.
func (r *QueueJobRepository) ReleaseStaleLocks(olderThan time.Time) (int, error) {
	query := `
        UPDATE queue_jobs
        SET status='pending', locked_by=NULL, locked_at=NULL
        WHERE status='sending' AND locked_at < $1
    `
	res, err := r.DB.Exec(query, olderThan)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ActivateScheduled moves scheduled jobs whose send time has passed to pending.
func (r *QueueJobRepository) ActivateScheduled(now time.Time) (int, error) {
	query := `
        UPDATE queue_jobs
        SET status='pending'
        WHERE status='scheduled' AND scheduled_at <= $1
    `
	res, err := r.DB.Exec(query, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// StatusCounts returns job counts by status for a campaign.
func (r *QueueJobRepository) StatusCounts(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM queue_jobs WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{
		model.JobStatusPending:   0,
		model.JobStatusScheduled: 0,
		model.JobStatusSending:   0,
		model.JobStatusSent:      0,
		model.JobStatusError:     0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.QueueJob, error) {
	var job model.QueueJob
	err := row.Scan(
		&job.ID, &job.CampaignID, &job.RecipientID, &job.ToEmail, &job.FromName,
		&job.FromEmail, &job.Subject, &job.HTMLBody, &job.Status, &job.Attempts,
		&job.LastError, &job.LockedBy, &job.LockedAt, &job.ScheduledAt,
		&job.CreatedAt, &job.SentAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

var _ QueueJobRepositoryInterface = (*QueueJobRepository)(nil)
