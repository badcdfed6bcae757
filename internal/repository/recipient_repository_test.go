package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

func newRecipientRepo(t *testing.T) (*repository.RecipientRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository.RecipientRepository{DB: db}, mock
}

func TestRecipientCreateInsertsWhenMissing(t *testing.T) {
	repo, mock := newRecipientRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaign_recipients").
		WithArgs(1, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO campaign_recipients").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at"}).
			AddRow(5, "pending", time.Now()))

	rec, err := repo.Create(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.ID)
	assert.Equal(t, 1, rec.CampaignID)
	assert.Equal(t, 2, rec.ContactID)
	assert.Equal(t, "pending", rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientCreateIsIdempotent(t *testing.T) {
	repo, mock := newRecipientRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "contact_id", "status", "last_error",
		"sent_at", "opened_at", "clicked_at", "created_at",
	}).AddRow(5, 1, 2, "sent", "", time.Now(), nil, nil, time.Now())

	// Existing row short-circuits: no INSERT expectation.
	mock.ExpectQuery("SELECT (.+) FROM campaign_recipients").
		WithArgs(1, 2).
		WillReturnRows(rows)

	rec, err := repo.Create(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.ID)
	assert.Equal(t, "sent", rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOpenedFirstOccurrenceOnly(t *testing.T) {
	repo, mock := newRecipientRepo(t)

	at := time.Now()
	mock.ExpectExec("UPDATE campaign_recipients SET opened_at").
		WithArgs(at, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaign_recipients SET opened_at").
		WithArgs(at, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkOpened(5, at)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkOpened(5, at)
	require.NoError(t, err)
	assert.False(t, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkClickedFirstOccurrenceOnly(t *testing.T) {
	repo, mock := newRecipientRepo(t)

	at := time.Now()
	mock.ExpectExec("UPDATE campaign_recipients SET clicked_at").
		WithArgs(at, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkClicked(9, at)
	require.NoError(t, err)
	assert.False(t, first)
	assert.NoError(t, mock.ExpectationsWereMet())
}
