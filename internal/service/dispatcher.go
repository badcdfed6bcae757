package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
	"github.com/unclebandit/mailpulse-backend/internal/transport"
)

// Dispatch worker defaults. The fixed per-job delay bounds outbound
// throughput to roughly 3 requests/second against the transport API.
const (
	DefaultBatchSize   = 200
	DefaultMaxAttempts = 3
	DefaultLockTimeout = 5 * time.Minute
	DefaultSendDelay   = 330 * time.Millisecond
)

// CycleReport summarizes one batch cycle.
type CycleReport struct {
	Recovered int           `json:"recovered"`
	Activated int           `json:"activated"`
	Claimed   int           `json:"claimed"`
	Sent      int           `json:"sent"`
	Errored   int           `json:"errored"`
	Duration  time.Duration `json:"duration"`
}

// Dispatcher drains due jobs from the queue store and sends them through the
// external transport. Any number of dispatchers may run concurrently; the
// per-job conditional claim in the repository is the only coordination.
type Dispatcher struct {
	Jobs       repository.QueueJobRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Sender     transport.Sender
	Logger     *zap.Logger

	// WorkerID identifies this worker in the locked_by column.
	WorkerID string

	BatchSize   int
	MaxAttempts int
	LockTimeout time.Duration
	SendDelay   time.Duration
}

// RunCycle executes one batch cycle: stale-lock recovery, schedule
// activation, batch selection, then claim/send/update per job in
// creation-time order. Individual job failures are recorded on the job and
// never abort the cycle; only queue store access failures do.
func (d *Dispatcher) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	report := &CycleReport{}

	recovered, err := d.Jobs.ReleaseStaleLocks(start.Add(-d.lockTimeout()))
	if err != nil {
		return nil, fmt.Errorf("release stale locks: %w", err)
	}
	report.Recovered = recovered
	if recovered > 0 {
		d.Logger.Warn("recovered jobs from stale locks", zap.Int("count", recovered))
	}

	activated, err := d.Jobs.ActivateScheduled(start)
	if err != nil {
		return nil, fmt.Errorf("activate scheduled jobs: %w", err)
	}
	report.Activated = activated

	batch, err := d.Jobs.PendingBatch(d.batchSize())
	if err != nil {
		return nil, fmt.Errorf("fetch pending batch: %w", err)
	}

	for i, job := range batch {
		if err := ctx.Err(); err != nil {
			break
		}

		claimed, err := d.Jobs.Claim(job.ID, d.WorkerID, time.Now())
		if err != nil {
			d.Logger.Error("claim failed", zap.Int("job_id", job.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// Another worker got there first. Expected under concurrency.
			continue
		}
		report.Claimed++

		if d.processJob(ctx, job) {
			report.Sent++
		} else {
			report.Errored++
		}

		if i < len(batch)-1 {
			d.pause(ctx)
		}
	}

	report.Duration = time.Since(start)
	d.Logger.Info("batch cycle finished",
		zap.Int("claimed", report.Claimed),
		zap.Int("sent", report.Sent),
		zap.Int("errored", report.Errored),
		zap.Int("recovered", report.Recovered),
		zap.Int("activated", report.Activated),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// processJob sends one claimed job and records the outcome. Returns true on
// delivery success. The recipient-record write-back is best-effort: its
// failure never rolls back the send result.
func (d *Dispatcher) processJob(ctx context.Context, job *model.QueueJob) bool {
	err := d.Sender.Send(ctx, transport.Message{
		FromName:  job.FromName,
		FromEmail: job.FromEmail,
		To:        job.ToEmail,
		Subject:   job.Subject,
		HTML:      job.HTMLBody,
	})

	if err == nil {
		sentAt := time.Now()
		if markErr := d.Jobs.MarkSent(job.ID, sentAt); markErr != nil {
			d.Logger.Error("failed to mark job sent", zap.Int("job_id", job.ID), zap.Error(markErr))
		}
		if job.RecipientID != nil {
			if recErr := d.Recipients.MarkSent(*job.RecipientID, sentAt); recErr != nil {
				d.Logger.Warn("recipient sent write-back failed",
					zap.Int("recipient_id", *job.RecipientID), zap.Error(recErr))
			}
		}
		return true
	}

	// The attempt count is incremented by the store, not from this worker's
	// batch-time snapshot: another worker may have failed the same job since
	// the batch was fetched.
	attempts, terminal, markErr := d.Jobs.MarkFailed(job.ID, err.Error(), d.maxAttempts())
	if markErr != nil {
		d.Logger.Error("failed to record send failure", zap.Int("job_id", job.ID), zap.Error(markErr))
		return false
	}

	if terminal {
		d.Logger.Warn("job failed terminally",
			zap.Int("job_id", job.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		if job.RecipientID != nil {
			if recErr := d.Recipients.MarkError(*job.RecipientID, err.Error()); recErr != nil {
				d.Logger.Warn("recipient error write-back failed",
					zap.Int("recipient_id", *job.RecipientID), zap.Error(recErr))
			}
		}
	} else {
		d.Logger.Info("job send failed, will retry",
			zap.Int("job_id", job.ID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
	return false
}

// pause waits out the fixed inter-job delay, returning early on context
// cancellation.
func (d *Dispatcher) pause(ctx context.Context) {
	delay := d.SendDelay
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize > 0 {
		return d.BatchSize
	}
	return DefaultBatchSize
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts > 0 {
		return d.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (d *Dispatcher) lockTimeout() time.Duration {
	if d.LockTimeout > 0 {
		return d.LockTimeout
	}
	return DefaultLockTimeout
}
