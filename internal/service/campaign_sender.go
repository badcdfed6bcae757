package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// SendCampaignResult summarizes one pipeline run for a campaign.
type SendCampaignResult struct {
	CampaignID int   `json:"campaign_id"`
	Queued     int   `json:"queued"`
	Skipped    int   `json:"skipped"`
	JobIDs     []int `json:"job_ids"`
}

// CampaignSender is the send pipeline shared by the scheduler and the direct
// send API: it resolves the campaign's recipients, checks the warming cap,
// renders the template per contact and queues one job each through the
// Enqueuer. It performs no delivery itself.
type CampaignSender struct {
	Campaigns  repository.CampaignRepositoryInterface
	Contacts   repository.ContactRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Enqueuer   *Enqueuer
	Limiter    *WarmingLimiter
	Wake       queue.Queue // optional; nil disables the worker wake-up
	Logger     *zap.Logger
}

// SendCampaign queues one job per subscribed contact of the campaign's list.
// Per-recipient failures are logged and skipped; they do not abort the run.
func (s *CampaignSender) SendCampaign(campaignID int) (*SendCampaignResult, error) {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	contacts, err := s.Contacts.ListSubscribedByList(campaign.ListID)
	if err != nil {
		return nil, fmt.Errorf("list campaign contacts: %w", err)
	}

	// Advisory capacity check before any job is created.
	check := s.Limiter.Check(campaign.OrgID, domainOf(campaign.FromEmail), len(contacts))
	if !check.Allowed {
		return nil, fmt.Errorf(
			"warming limit reached for %s: %d of %d used on day %d",
			domainOf(campaign.FromEmail), check.Used, check.DailyLimit, check.Day,
		)
	}

	result := &SendCampaignResult{
		CampaignID: campaignID,
		JobIDs:     []int{},
	}

	for _, contact := range contacts {
		jobID, err := s.queueForContact(campaign, &contact)
		if err != nil {
			s.Logger.Warn("skipping recipient",
				zap.Int("campaign_id", campaignID),
				zap.Int("contact_id", contact.ID),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		result.JobIDs = append(result.JobIDs, jobID)
		result.Queued++
	}

	s.publishWake(result.Queued)

	return result, nil
}

func (s *CampaignSender) queueForContact(campaign *model.Campaign, contact *model.Contact) (int, error) {
	rec, err := s.Recipients.Create(campaign.ID, contact.ID)
	if err != nil {
		return 0, fmt.Errorf("create recipient record: %w", err)
	}

	data := ContactData(contact)
	return s.Enqueuer.Enqueue(SendRequest{
		CampaignID:  &campaign.ID,
		RecipientID: &rec.ID,
		ToEmail:     contact.Email,
		FromName:    campaign.FromName,
		FromEmail:   campaign.FromEmail,
		Subject:     RenderTemplate(campaign.Subject, data),
		HTMLBody:    RenderTemplate(campaign.HTMLBody, data),
		ScheduledAt: nil,
	})
}

// publishWake nudges the worker daemon to run a batch cycle now. Best-effort:
// the jobs are durable either way and the next tick will pick them up.
func (s *CampaignSender) publishWake(queued int) {
	if s.Wake == nil || queued == 0 {
		return
	}
	payload := []byte(fmt.Sprintf(`{"queued":%d}`, queued))
	if err := s.Wake.Publish(queue.WakeTopic, payload); err != nil {
		s.Logger.Warn("dispatch wake publish failed", zap.Error(err))
	}
}

func domainOf(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
