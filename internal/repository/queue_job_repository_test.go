package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

var jobCols = []string{
	"id", "campaign_id", "recipient_id", "to_email", "from_name", "from_email",
	"subject", "html_body", "status", "attempts", "last_error", "locked_by",
	"locked_at", "scheduled_at", "created_at", "sent_at",
}

func newJobRepo(t *testing.T) (*repository.QueueJobRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository.QueueJobRepository{DB: db}, mock
}

func TestCreateReturnsGeneratedID(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("INSERT INTO queue_jobs").
		WithArgs(
			nil, nil, "user@example.com", "Mailpulse", "news@example.com",
			"Hello", "<p>Hi</p>", "pending", 0, "", nil, sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	job := &model.QueueJob{
		ToEmail:   "user@example.com",
		FromName:  "Mailpulse",
		FromEmail: "news@example.com",
		Subject:   "Hello",
		HTMLBody:  "<p>Hi</p>",
	}
	require.NoError(t, repo.Create(job))
	assert.Equal(t, 7, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMiss(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM queue_jobs WHERE id=").
		WithArgs(42).
		WillReturnError(sql.ErrNoRows)

	job, err := repo.GetByID(42)
	assert.Nil(t, job)
	require.Error(t, err)
	var notFound *appErrors.ErrJobNotFound
	assert.ErrorAs(t, err, &notFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingBatchScansJobs(t *testing.T) {
	repo, mock := newJobRepo(t)

	now := time.Now()
	rows := sqlmock.NewRows(jobCols).
		AddRow(1, nil, nil, "a@example.com", "M", "news@example.com",
			"s1", "b1", "pending", 0, "", nil, nil, nil, now.Add(-2*time.Minute), nil).
		AddRow(2, 10, 20, "b@example.com", "M", "news@example.com",
			"s2", "b2", "pending", 1, "temporary failure", nil, nil, nil, now.Add(-time.Minute), nil)

	mock.ExpectQuery("SELECT (.+) FROM queue_jobs").
		WithArgs(200).
		WillReturnRows(rows)

	jobs, err := repo.PendingBatch(200)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "a@example.com", jobs[0].ToEmail)
	assert.Nil(t, jobs[0].CampaignID)

	require.NotNil(t, jobs[1].CampaignID)
	assert.Equal(t, 10, *jobs[1].CampaignID)
	require.NotNil(t, jobs[1].RecipientID)
	assert.Equal(t, 20, *jobs[1].RecipientID)
	assert.Equal(t, 1, jobs[1].Attempts)
	assert.Equal(t, "temporary failure", jobs[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimWinsOnOneRow(t *testing.T) {
	repo, mock := newJobRepo(t)

	now := time.Now()
	mock.ExpectExec("UPDATE queue_jobs").
		WithArgs("worker-1", now, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(5, "worker-1", now)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLosesOnZeroRows(t *testing.T) {
	repo, mock := newJobRepo(t)

	// Another worker flipped the row off pending first.
	now := time.Now()
	mock.ExpectExec("UPDATE queue_jobs").
		WithArgs("worker-2", now, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(5, "worker-2", now)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedIncrementsInStore(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("UPDATE queue_jobs").
		WithArgs("timeout", 3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "status"}).AddRow(2, "pending"))

	attempts, terminal, err := repo.MarkFailed(5, "timeout", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.False(t, terminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedTerminalAtMaxAttempts(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("UPDATE queue_jobs").
		WithArgs("provider rejected message", 3, 5).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "status"}).AddRow(3, "error"))

	attempts, terminal, err := repo.MarkFailed(5, "provider rejected message", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, terminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseStaleLocksCountsRows(t *testing.T) {
	repo, mock := newJobRepo(t)

	cutoff := time.Now().Add(-5 * time.Minute)
	mock.ExpectExec("UPDATE queue_jobs").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ReleaseStaleLocks(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateScheduledCountsRows(t *testing.T) {
	repo, mock := newJobRepo(t)

	now := time.Now()
	mock.ExpectExec("UPDATE queue_jobs").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ActivateScheduled(now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCountsFillsAllStatuses(t *testing.T) {
	repo, mock := newJobRepo(t)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("sent", 8).
		AddRow("error", 2)

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs(3).
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(3)
	require.NoError(t, err)
	assert.Equal(t, 8, counts[model.JobStatusSent])
	assert.Equal(t, 2, counts[model.JobStatusError])
	assert.Equal(t, 0, counts[model.JobStatusPending])
	assert.Equal(t, 0, counts[model.JobStatusSending])
	assert.NoError(t, mock.ExpectationsWereMet())
}
