package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/mailpulse-backend/internal/model"
	"github.com/unclebandit/mailpulse-backend/internal/queue"
	"github.com/unclebandit/mailpulse-backend/internal/repository"
)

// DefaultTriggerLookback bounds how far back the contact_added trigger
// scans for new contacts.
const DefaultTriggerLookback = 24 * time.Hour

// warmingRetryDelay is how long a send step is deferred when the warming cap
// for the automation's sender domain is used up.
const warmingRetryDelay = time.Hour

// AutomationEngine advances contacts through multi-step automations. Each
// (automation, contact) progression is an explicit state-machine row; the
// engine creates executions for fresh trigger matches and executes due steps.
//
// A step failure pauses the execution. There is no automatic resume: pausing
// is fail-closed on purpose, so an external side effect is never retried in
// a loop without an operator looking at it first.
type AutomationEngine struct {
	Automations repository.AutomationRepositoryInterface
	Contacts    repository.ContactRepositoryInterface
	Enqueuer    *Enqueuer
	Limiter     *WarmingLimiter
	Wake        queue.Queue // optional; nil disables the worker wake-up
	Logger      *zap.Logger

	TriggerLookback time.Duration
}

// RunCycle evaluates triggers and executes due steps for every active
// automation. Per-automation and per-execution failures are isolated; only a
// failure to list the active automations aborts the cycle.
func (e *AutomationEngine) RunCycle() error {
	automations, err := e.Automations.ListActive()
	if err != nil {
		return fmt.Errorf("list active automations: %w", err)
	}

	for _, automation := range automations {
		e.syncTriggers(automation)
		e.runDueExecutions(automation)
	}
	return nil
}

// syncTriggers creates a step-1 execution, immediately eligible, for every
// trigger match that has no execution yet. A contact with a non-terminal
// execution is progressed by runDueExecutions instead of getting a second
// row; a contact with a terminal one is not re-entered.
func (e *AutomationEngine) syncTriggers(automation *model.Automation) {
	contacts, err := e.triggerMatches(automation)
	if err != nil {
		e.Logger.Error("trigger evaluation failed",
			zap.Int("automation_id", automation.ID),
			zap.String("trigger", automation.TriggerType),
			zap.Error(err),
		)
		return
	}

	for _, contact := range contacts {
		exists, err := e.Automations.HasExecution(automation.ID, contact.ID)
		if err != nil {
			e.Logger.Error("execution lookup failed",
				zap.Int("automation_id", automation.ID),
				zap.Int("contact_id", contact.ID),
				zap.Error(err),
			)
			continue
		}
		if exists {
			continue
		}

		exec := &model.AutomationExecution{
			AutomationID:    automation.ID,
			ContactID:       contact.ID,
			CurrentStep:     1,
			Status:          model.ExecutionStatusPending,
			NextExecutionAt: time.Now(),
		}
		if err := e.Automations.CreateExecution(exec); err != nil {
			e.Logger.Error("failed to create execution",
				zap.Int("automation_id", automation.ID),
				zap.Int("contact_id", contact.ID),
				zap.Error(err),
			)
		}
	}
}

func (e *AutomationEngine) triggerMatches(automation *model.Automation) ([]model.Contact, error) {
	switch automation.TriggerType {
	case model.TriggerContactAdded:
		return e.Contacts.ListCreatedSince(time.Now().Add(-e.lookback()))
	case model.TriggerListSubscription:
		if automation.TriggerListID == nil {
			return nil, fmt.Errorf("automation %d has list trigger without a list", automation.ID)
		}
		return e.Contacts.ListSubscribedByList(*automation.TriggerListID)
	default:
		return nil, fmt.Errorf("unknown trigger type %q", automation.TriggerType)
	}
}

func (e *AutomationEngine) runDueExecutions(automation *model.Automation) {
	execs, err := e.Automations.DueExecutions(automation.ID, time.Now())
	if err != nil {
		e.Logger.Error("failed to fetch due executions",
			zap.Int("automation_id", automation.ID),
			zap.Error(err),
		)
		return
	}

	for _, exec := range execs {
		e.processExecution(automation, exec)
	}
}

// processExecution runs the current step of one execution and advances its
// state. Any step error pauses the execution, preserving its row for
// inspection and manual resumption.
func (e *AutomationEngine) processExecution(automation *model.Automation, exec *model.AutomationExecution) {
	now := time.Now()
	steps := automation.Steps

	if exec.CurrentStep > len(steps) {
		e.complete(exec, now)
		return
	}
	if exec.NextExecutionAt.After(now) {
		return // not due yet
	}

	step := steps[exec.CurrentStep-1]
	switch step.Type {
	case model.StepSendEmail:
		if !e.warmingAllows(automation) {
			// The daily warmup cap is spent. Defer the step unchanged; the
			// cap resets and this is not a failure worth pausing over.
			e.deferStep(exec, now.Add(warmingRetryDelay))
			return
		}
		if err := e.executeSendStep(automation, exec, step); err != nil {
			e.pause(exec, err)
			return
		}
		exec.CurrentStep++
		exec.NextExecutionAt = now
		// A wait directly after a send has its eligibility pre-computed in
		// the same cycle; it has no side effect of its own.
		if exec.CurrentStep <= len(steps) && steps[exec.CurrentStep-1].Type == model.StepWait {
			exec.NextExecutionAt = now.AddDate(0, 0, steps[exec.CurrentStep-1].WaitDays)
			exec.CurrentStep++
		}

	case model.StepWait:
		exec.NextExecutionAt = now.AddDate(0, 0, step.WaitDays)
		exec.CurrentStep++

	default:
		e.pause(exec, fmt.Errorf("unknown step type %q", step.Type))
		return
	}

	if exec.CurrentStep > len(steps) {
		e.complete(exec, now)
		return
	}
	if err := e.Automations.AdvanceExecution(exec.ID, exec.CurrentStep, model.ExecutionStatusPending, exec.NextExecutionAt); err != nil {
		e.Logger.Error("failed to advance execution",
			zap.Int("execution_id", exec.ID),
			zap.Error(err),
		)
	}
}

func (e *AutomationEngine) executeSendStep(automation *model.Automation, exec *model.AutomationExecution, step model.AutomationStep) error {
	contact, err := e.Contacts.GetByID(exec.ContactID)
	if err != nil {
		return fmt.Errorf("load contact %d: %w", exec.ContactID, err)
	}
	if contact == nil {
		return fmt.Errorf("contact %d not found", exec.ContactID)
	}

	data := ContactData(contact)
	_, err = e.Enqueuer.Enqueue(SendRequest{
		ToEmail:   contact.Email,
		FromName:  automation.FromName,
		FromEmail: automation.FromEmail,
		Subject:   RenderTemplate(step.Subject, data),
		HTMLBody:  RenderTemplate(step.HTMLBody, data),
	})
	if err != nil {
		return fmt.Errorf("enqueue automation email: %w", err)
	}

	// Lifetime counter only; its failure is not a step failure.
	if err := e.Automations.IncrementEmailsSent(automation.ID); err != nil {
		e.Logger.Warn("failed to bump automation send counter",
			zap.Int("automation_id", automation.ID),
			zap.Error(err),
		)
	}

	e.publishWake()
	return nil
}

// warmingAllows checks the advisory warmup cap for the automation's sender
// domain. A nil limiter allows everything.
func (e *AutomationEngine) warmingAllows(automation *model.Automation) bool {
	if e.Limiter == nil {
		return true
	}
	check := e.Limiter.Check(automation.OrgID, domainOf(automation.FromEmail), 1)
	if !check.Allowed {
		e.Logger.Info("automation send deferred by warming cap",
			zap.Int("automation_id", automation.ID),
			zap.String("domain", domainOf(automation.FromEmail)),
			zap.Int("daily_limit", check.DailyLimit),
			zap.Int("used", check.Used),
		)
	}
	return check.Allowed
}

// deferStep pushes an execution's next attempt out without advancing it.
func (e *AutomationEngine) deferStep(exec *model.AutomationExecution, until time.Time) {
	if err := e.Automations.AdvanceExecution(exec.ID, exec.CurrentStep, model.ExecutionStatusPending, until); err != nil {
		e.Logger.Error("failed to defer execution",
			zap.Int("execution_id", exec.ID),
			zap.Error(err),
		)
	}
}

// publishWake nudges the worker daemon after an automation enqueue.
// Best-effort, same as the campaign pipeline's wake.
func (e *AutomationEngine) publishWake() {
	if e.Wake == nil {
		return
	}
	if err := e.Wake.Publish(queue.WakeTopic, []byte(`{"queued":1}`)); err != nil {
		e.Logger.Warn("dispatch wake publish failed", zap.Error(err))
	}
}

func (e *AutomationEngine) complete(exec *model.AutomationExecution, now time.Time) {
	if err := e.Automations.CompleteExecution(exec.ID, now); err != nil {
		e.Logger.Error("failed to complete execution",
			zap.Int("execution_id", exec.ID),
			zap.Error(err),
		)
	}
}

func (e *AutomationEngine) pause(exec *model.AutomationExecution, cause error) {
	e.Logger.Error("step execution failed, pausing",
		zap.Int("execution_id", exec.ID),
		zap.Int("step", exec.CurrentStep),
		zap.Error(cause),
	)
	if err := e.Automations.PauseExecution(exec.ID); err != nil {
		e.Logger.Error("failed to pause execution",
			zap.Int("execution_id", exec.ID),
			zap.Error(err),
		)
	}
}

func (e *AutomationEngine) lookback() time.Duration {
	if e.TriggerLookback > 0 {
		return e.TriggerLookback
	}
	return DefaultTriggerLookback
}
