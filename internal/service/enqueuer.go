package service

import (
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// SendRequest is the input contract of the Enqueuer. CampaignID and
// RecipientID are optional weak links used for downstream stat updates.
// A non-nil ScheduledAt parks the job in "scheduled" until its send time.
type SendRequest struct {
	CampaignID  *int       `json:"campaign_id,omitempty"`
	RecipientID *int       `json:"recipient_id,omitempty"`
	ToEmail     string     `json:"to_email"`
	FromName    string     `json:"from_name"`
	FromEmail   string     `json:"from_email"`
	Subject     string     `json:"subject"`
	HTMLBody    string     `json:"html_body"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Enqueuer is the single entry point for queue job creation. Every send,
// whether from the API, the campaign scheduler or the automation engine,
// goes through Enqueue so it hits the same validation and durability path.
type Enqueuer struct {
	Jobs   repository.QueueJobRepositoryInterface
	Logger *zap.Logger
}

// Enqueue validates the request and inserts exactly one pending job with
// zero attempts, returning its id. It never touches the transport.
func (e *Enqueuer) Enqueue(req SendRequest) (int, error) {
	if err := validateSendRequest(req); err != nil {
		return 0, err
	}

	status := model.JobStatusPending
	if req.ScheduledAt != nil {
		status = model.JobStatusScheduled
	}

	job := &model.QueueJob{
		CampaignID:  req.CampaignID,
		RecipientID: req.RecipientID,
		ToEmail:     req.ToEmail,
		FromName:    req.FromName,
		FromEmail:   req.FromEmail,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		Status:      status,
		Attempts:    0,
		ScheduledAt: req.ScheduledAt,
	}

	if err := e.Jobs.Create(job); err != nil {
		return 0, err
	}

	e.Logger.Debug("queued email job",
		zap.Int("job_id", job.ID),
		zap.String("to", job.ToEmail),
		zap.String("status", job.Status),
	)
	return job.ID, nil
}

func validateSendRequest(req SendRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"to_email", req.ToEmail},
		{"from_name", req.FromName},
		{"from_email", req.FromEmail},
		{"subject", req.Subject},
		{"html_body", req.HTMLBody},
	}
	for _, f := range fields {
		if f.value == "" {
			return appErrors.NewInvalidRequest(f.name)
		}
	}
	return nil
}
