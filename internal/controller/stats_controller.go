// internal/controller/stats_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/repository"
	"github.com/unclebandit/mailpulse-backend/internal/service"
)

// StatsController exposes queue-status counts and the warming diagnostics.
type StatsController struct {
	Jobs    repository.QueueJobRepositoryInterface
	Limiter *service.WarmingLimiter
	Logger  *zap.Logger
}

// CampaignStats handles GET /campaigns/{id}/stats: job counts by status.
func (c *StatsController) CampaignStats(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	counts, err := c.Jobs.StatusCounts(id)
	if err != nil {
		c.Logger.Error("stats query failed", zap.Int("campaign_id", id), zap.Error(err))
		http.Error(w, "failed to fetch stats", http.StatusInternalServerError)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"total":       total,
		"stats":       counts,
	})
}

// WarmingCheck handles GET /warming/check?org=&domain=&count=.
func (c *StatsController) WarmingCheck(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.Atoi(r.URL.Query().Get("org"))
	if err != nil {
		http.Error(w, "invalid org", http.StatusBadRequest)
		return
	}
	count := 1
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if n, err := strconv.Atoi(countStr); err == nil && n > 0 {
			count = n
		}
	}
	domain := r.URL.Query().Get("domain")

	result := c.Limiter.Check(orgID, domain, count)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
