// internal/controller/email_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/mailpulse-backend/internal/errors"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/service"
)

// EmailController exposes the enqueue and campaign-send API.
type EmailController struct {
	Enqueuer *service.Enqueuer
	Pipeline *service.CampaignSender
	Wake     queue.Queue // optional; nil disables the worker wake-up
	Logger   *zap.Logger
}

// EnqueueEmail handles POST /emails: validate and queue a single
// transactional email. No delivery happens on this path.
func (c *EmailController) EnqueueEmail(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	jobID, err := c.Enqueuer.Enqueue(req)
	if err != nil {
		if appErrors.IsInvalidRequest(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		c.Logger.Error("enqueue failed", zap.Error(err))
		http.Error(w, "failed to queue email", http.StatusInternalServerError)
		return
	}

	// Best-effort wake so the worker picks the job up without waiting out
	// its interval. Scheduled jobs are not due yet, so no wake for them.
	if c.Wake != nil && req.ScheduledAt == nil {
		if err := c.Wake.Publish(queue.WakeTopic, []byte(`{"queued":1}`)); err != nil {
			c.Logger.Warn("dispatch wake publish failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"status": "pending",
	})
}

// SendCampaign handles POST /campaigns/{id}/send: run the send pipeline for
// the campaign immediately.
func (c *EmailController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := c.Pipeline.SendCampaign(id)
	if err != nil {
		if appErrors.IsCampaignNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		c.Logger.Error("campaign send failed", zap.Int("campaign_id", id), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
