package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/service"
)

type memWarmingRepo struct {
	state    *model.WarmingState
	used     int
	stateErr error
	countErr error
}

func (m *memWarmingRepo) GetState(orgID int, senderDomain string) (*model.WarmingState, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	return m.state, nil
}

func (m *memWarmingRepo) CountQueuedToday(senderDomain string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.used, nil
}

func activeWarmingState(startedDaysAgo int) *model.WarmingState {
	return &model.WarmingState{
		ID:           1,
		OrgID:        1,
		SenderDomain: "example.com",
		Active:       true,
		StartedAt:    time.Now().Add(-time.Duration(startedDaysAgo) * 24 * time.Hour),
	}
}

func TestWarmingDeniesAtLimit(t *testing.T) {
	// Day 5 of the ramp allows 100 emails; all are used up.
	repo := &memWarmingRepo{state: activeWarmingState(4), used: 100}
	limiter := &service.WarmingLimiter{Warming: repo, Logger: zap.NewNop()}

	result := limiter.Check(1, "example.com", 1)
	assert.False(t, result.Allowed)
	assert.True(t, result.Active)
	assert.Equal(t, 5, result.Day)
	assert.Equal(t, 100, result.DailyLimit)
	assert.Equal(t, 100, result.Used)
	assert.Equal(t, 0, result.Remaining)
}

func TestWarmingAllowsWithinLimit(t *testing.T) {
	repo := &memWarmingRepo{state: activeWarmingState(4), used: 40}
	limiter := &service.WarmingLimiter{Warming: repo, Logger: zap.NewNop()}

	result := limiter.Check(1, "example.com", 60)
	assert.True(t, result.Allowed)
	assert.Equal(t, 60, result.Remaining)

	result = limiter.Check(1, "example.com", 61)
	assert.False(t, result.Allowed)
}

func TestWarmingFailsOpenOnError(t *testing.T) {
	repo := &memWarmingRepo{stateErr: fmt.Errorf("connection refused")}
	limiter := &service.WarmingLimiter{Warming: repo, Logger: zap.NewNop()}

	result := limiter.Check(1, "example.com", 1000000)
	assert.True(t, result.Allowed, "limiter errors must fail open")

	repo = &memWarmingRepo{state: activeWarmingState(4), countErr: fmt.Errorf("timeout")}
	limiter = &service.WarmingLimiter{Warming: repo, Logger: zap.NewNop()}

	result = limiter.Check(1, "example.com", 1000000)
	assert.True(t, result.Allowed)
}

func TestWarmingInactiveAllowsEverything(t *testing.T) {
	limiter := &service.WarmingLimiter{Warming: &memWarmingRepo{state: nil}, Logger: zap.NewNop()}
	result := limiter.Check(1, "example.com", 1000000)
	assert.True(t, result.Allowed)
	assert.False(t, result.Active)

	done := activeWarmingState(2)
	completed := time.Now()
	done.CompletedAt = &completed
	limiter = &service.WarmingLimiter{Warming: &memWarmingRepo{state: done}, Logger: zap.NewNop()}
	result = limiter.Check(1, "example.com", 1000000)
	assert.True(t, result.Allowed)
	assert.False(t, result.Active)
}

func TestWarmingFinishedRampAllows(t *testing.T) {
	repo := &memWarmingRepo{state: activeWarmingState(40), used: 999999}
	limiter := &service.WarmingLimiter{Warming: repo, Logger: zap.NewNop()}

	result := limiter.Check(1, "example.com", 50000)
	assert.True(t, result.Allowed)
	assert.False(t, result.Active)
}
