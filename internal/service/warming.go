package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// warmupSchedule is the fixed daily-cap ramp applied during IP/domain
// warmup. Entries cover day ranges; past the last entry warmup is over.
var warmupSchedule = []struct {
	throughDay int
	dailyLimit int
}{
	{3, 50},
	{7, 100},
	{14, 300},
	{21, 1000},
	{28, 5000},
}

// warmupDays is the total length of the ramp.
const warmupDays = 28

// WarmingCheckResult is the limiter's answer plus diagnostic fields.
type WarmingCheckResult struct {
	Allowed    bool   `json:"allowed"`
	Active     bool   `json:"warming_active"`
	Day        int    `json:"day,omitempty"`
	DailyLimit int    `json:"daily_limit,omitempty"`
	Used       int    `json:"used,omitempty"`
	Remaining  int    `json:"remaining"`
	Reason     string `json:"reason,omitempty"`
}

// WarmingLimiter answers whether a requested number of sends fits under
// today's warmup cap for an org's sending domain. The check is advisory
// capacity information, not a lock: a race between check and enqueue can
// exceed the cap by a small margin.
//
// Policy: the limiter fails open. Any internal error while computing the
// limit results in allowed=true, favoring deliverability over strict warmup
// enforcement.
type WarmingLimiter struct {
	Warming repository.WarmingRepositoryInterface
	Logger  *zap.Logger
}

// Check reports whether count more emails may be sent today for the org's
// sender domain. senderDomain may be empty, in which case the org's
// configured warming domain is used.
func (w *WarmingLimiter) Check(orgID int, senderDomain string, count int) WarmingCheckResult {
	state, err := w.Warming.GetState(orgID, senderDomain)
	if err != nil {
		return w.failOpen("load warming state", err)
	}
	if state == nil || !state.Active || state.CompletedAt != nil {
		return WarmingCheckResult{Allowed: true, Active: false, Remaining: -1, Reason: "warming not active"}
	}

	day := warmupDay(state.StartedAt, time.Now())
	if day > warmupDays {
		return WarmingCheckResult{Allowed: true, Active: false, Day: day, Remaining: -1, Reason: "warmup period finished"}
	}

	limit := dailyLimitFor(day)

	domain := senderDomain
	if domain == "" {
		domain = state.SenderDomain
	}
	used, err := w.Warming.CountQueuedToday(domain)
	if err != nil {
		return w.failOpen("count today's sends", err)
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return WarmingCheckResult{
		Allowed:    count <= remaining,
		Active:     true,
		Day:        day,
		DailyLimit: limit,
		Used:       used,
		Remaining:  remaining,
	}
}

func (w *WarmingLimiter) failOpen(op string, err error) WarmingCheckResult {
	w.Logger.Warn("warming check failed, allowing send",
		zap.String("op", op),
		zap.Error(err),
	)
	return WarmingCheckResult{Allowed: true, Remaining: -1, Reason: "limiter error, failing open"}
}

// warmupDay returns the 1-based warmup day number for now.
func warmupDay(startedAt, now time.Time) int {
	return int(now.Sub(startedAt).Hours()/24) + 1
}

func dailyLimitFor(day int) int {
	for _, entry := range warmupSchedule {
		if day <= entry.throughDay {
			return entry.dailyLimit
		}
	}
	return warmupSchedule[len(warmupSchedule)-1].dailyLimit
}
