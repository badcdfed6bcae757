// internal/model/automation.go
package model

import "time"

// Automation trigger types.
const (
	TriggerContactAdded     = "contact_added"
	TriggerListSubscription = "list_subscription"
)

// Automation step types.
const (
	StepSendEmail = "send_email"
	StepWait      = "wait"
)

// Execution statuses. pending and running are non-terminal; at most one
// non-terminal execution exists per (automation, contact) pair.
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusRunning   = "running"
	ExecutionStatusCompleted = "completed"
	ExecutionStatusPaused    = "paused"
)

// AutomationStep is one step of an automation sequence, stored as JSON on
// the automation row.
type AutomationStep struct {
	Type     string `json:"type"`
	Subject  string `json:"subject,omitempty"`
	HTMLBody string `json:"html_body,omitempty"`
	WaitDays int    `json:"wait_days,omitempty"`
}

type Automation struct {
	ID            int              `db:"id" json:"id"`
	OrgID         int              `db:"org_id" json:"org_id"`
	Name          string           `db:"name" json:"name"`
	Active        bool             `db:"active" json:"active"`
	TriggerType   string           `db:"trigger_type" json:"trigger_type"`
	TriggerListID *int             `db:"trigger_list_id" json:"trigger_list_id,omitempty"`
	FromName      string           `db:"from_name" json:"from_name"`
	FromEmail     string           `db:"from_email" json:"from_email"`
	EmailsSent    int              `db:"emails_sent" json:"emails_sent"`
	Steps         []AutomationStep `db:"-" json:"steps"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// AutomationExecution tracks a single contact's progress through an
// automation. CurrentStep is 1-based.
type AutomationExecution struct {
	ID              int        `db:"id" json:"id"`
	AutomationID    int        `db:"automation_id" json:"automation_id"`
	ContactID       int        `db:"contact_id" json:"contact_id"`
	CurrentStep     int        `db:"current_step" json:"current_step"`
	Status          string     `db:"status" json:"status"`
	NextExecutionAt time.Time  `db:"next_execution_at" json:"next_execution_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Terminal reports whether the execution has reached a terminal status.
func (e *AutomationExecution) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusPaused
}
