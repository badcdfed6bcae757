package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/unclebandit/mailpulse-backend/internal/model"
)

type AutomationRepositoryInterface interface {
	ListActive() ([]*model.Automation, error)
	IncrementEmailsSent(automationID int) error

	// Executions
	HasExecution(automationID, contactID int) (bool, error)
	CreateExecution(exec *model.AutomationExecution) error
	DueExecutions(automationID int, now time.Time) ([]*model.AutomationExecution, error)
	AdvanceExecution(id int, currentStep int, status string, nextExecutionAt time.Time) error
	CompleteExecution(id int, completedAt time.Time) error
	PauseExecution(id int) error
}

type AutomationRepository struct {
	DB *sql.DB
}

// ListActive returns active automations with their step list decoded from
// the steps JSON column.
func (r *AutomationRepository) ListActive() ([]*model.Automation, error) {
	query := `
        SELECT id, org_id, name, active, trigger_type, trigger_list_id, from_name, from_email,
               emails_sent, steps, created_at
        FROM automations
        WHERE active = TRUE
        ORDER BY id ASC
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	automations := []*model.Automation{}
	for rows.Next() {
		a := &model.Automation{}
		var rawSteps []byte
		if err := rows.Scan(
			&a.ID, &a.OrgID, &a.Name, &a.Active, &a.TriggerType, &a.TriggerListID,
			&a.FromName, &a.FromEmail, &a.EmailsSent, &rawSteps, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawSteps, &a.Steps); err != nil {
			return nil, fmt.Errorf("decode steps for automation %d: %w", a.ID, err)
		}
		automations = append(automations, a)
	}
	return automations, rows.Err()
}

func (r *AutomationRepository) IncrementEmailsSent(automationID int) error {
	query := `UPDATE automations SET emails_sent = emails_sent + 1 WHERE id=$1`
	_, err := r.DB.Exec(query, automationID)
	return err
}

const executionColumns = `id, automation_id, contact_id, current_step, status,
        next_execution_at, completed_at, created_at`

// HasExecution reports whether any execution, terminal or not, exists for
// the (automation, contact) pair. Guards against re-triggering an automation
// for a contact who already went through it.
func (r *AutomationRepository) HasExecution(automationID, contactID int) (bool, error) {
	query := `SELECT 1 FROM automation_executions WHERE automation_id=$1 AND contact_id=$2 LIMIT 1`
	var tmp int
	err := r.DB.QueryRow(query, automationID, contactID).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *AutomationRepository) CreateExecution(exec *model.AutomationExecution) error {
	exec.CreatedAt = time.Now()
	if exec.Status == "" {
		exec.Status = model.ExecutionStatusPending
	}
	query := `
        INSERT INTO automation_executions
        (automation_id, contact_id, current_step, status, next_execution_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		exec.AutomationID,
		exec.ContactID,
		exec.CurrentStep,
		exec.Status,
		exec.NextExecutionAt,
		exec.CreatedAt,
	).Scan(&exec.ID)
}

// DueExecutions returns non-terminal executions of an automation whose
// next execution time has passed.
func (r *AutomationRepository) DueExecutions(automationID int, now time.Time) ([]*model.AutomationExecution, error) {
	query := `SELECT ` + executionColumns + `
        FROM automation_executions
        WHERE automation_id=$1 AND status IN ('pending', 'running') AND next_execution_at <= $2
        ORDER BY next_execution_at ASC`
	rows, err := r.DB.Query(query, automationID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	execs := []*model.AutomationExecution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

func (r *AutomationRepository) AdvanceExecution(id int, currentStep int, status string, nextExecutionAt time.Time) error {
	query := `
        UPDATE automation_executions
        SET current_step=$1, status=$2, next_execution_at=$3
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, currentStep, status, nextExecutionAt, id)
	return err
}

func (r *AutomationRepository) CompleteExecution(id int, completedAt time.Time) error {
	query := `UPDATE automation_executions SET status='completed', completed_at=$1 WHERE id=$2`
	_, err := r.DB.Exec(query, completedAt, id)
	return err
}

// PauseExecution parks an execution after a step failure. There is no
// automatic resume; an operator has to flip the row back.
func (r *AutomationRepository) PauseExecution(id int) error {
	query := `UPDATE automation_executions SET status='paused' WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

func scanExecution(row rowScanner) (*model.AutomationExecution, error) {
	var exec model.AutomationExecution
	err := row.Scan(
		&exec.ID, &exec.AutomationID, &exec.ContactID, &exec.CurrentStep,
		&exec.Status, &exec.NextExecutionAt, &exec.CompletedAt, &exec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

var _ AutomationRepositoryInterface = (*AutomationRepository)(nil)
