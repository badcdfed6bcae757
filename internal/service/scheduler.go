package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// ScheduledCampaignResult is the per-campaign outcome of one scheduler cycle.
type ScheduledCampaignResult struct {
	CampaignID int    `json:"campaign_id"`
	Queued     int    `json:"queued"`
	Error      string `json:"error,omitempty"`
}

// CampaignScheduler finds campaigns whose scheduled send time has passed and
// runs the send pipeline for each. Campaign failures are isolated: one
// campaign erroring never affects the others in the same cycle, and a
// campaign is never re-picked once its status has left "scheduled".
type CampaignScheduler struct {
	Campaigns repository.CampaignRepositoryInterface
	Pipeline  *CampaignSender
	Logger    *zap.Logger
}

// RunCycle processes all due campaigns once. Only a failure to reach the
// campaign store is a cycle-level error.
func (s *CampaignScheduler) RunCycle() ([]ScheduledCampaignResult, error) {
	due, err := s.Campaigns.DueScheduled(time.Now())
	if err != nil {
		return nil, fmt.Errorf("fetch due campaigns: %w", err)
	}

	results := make([]ScheduledCampaignResult, 0, len(due))
	for _, campaign := range due {
		results = append(results, s.processCampaign(campaign))
	}

	if len(due) > 0 {
		s.Logger.Info("scheduler cycle finished", zap.Int("campaigns", len(due)))
	}
	return results, nil
}

func (s *CampaignScheduler) processCampaign(campaign *model.Campaign) ScheduledCampaignResult {
	result := ScheduledCampaignResult{CampaignID: campaign.ID}

	if err := s.Campaigns.UpdateStatus(campaign.ID, model.CampaignStatusSending); err != nil {
		result.Error = err.Error()
		return result
	}

	sendResult, err := s.Pipeline.SendCampaign(campaign.ID)
	if err != nil {
		s.Logger.Error("campaign send pipeline failed",
			zap.Int("campaign_id", campaign.ID),
			zap.Error(err),
		)
		result.Error = err.Error()
		// Terminal: the scheduler does not retry failed campaigns.
		if updateErr := s.Campaigns.UpdateStatus(campaign.ID, model.CampaignStatusError); updateErr != nil {
			s.Logger.Error("failed to mark campaign errored",
				zap.Int("campaign_id", campaign.ID), zap.Error(updateErr))
		}
		return result
	}

	result.Queued = sendResult.Queued
	if err := s.Campaigns.UpdateStatus(campaign.ID, model.CampaignStatusSent); err != nil {
		result.Error = err.Error()
	}
	return result
}
