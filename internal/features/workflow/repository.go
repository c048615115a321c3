package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-regula/internal/database"
)

type WorkflowRepository interface {
	Create(ctx context.Context, wf *Workflow) error
	// GetByID returns nil, nil when no workflow matches. With forUpdate the
	// row is locked until the surrounding transaction ends.
	GetByID(ctx context.Context, id string, forUpdate bool) (*Workflow, error)
	List(ctx context.Context) ([]Workflow, error)
	ListByRequester(ctx context.Context, requesterID string) ([]Workflow, error)
	// UpdateState writes the engine-owned fields. RequesterID is never written.
	UpdateState(ctx context.Context, wf *Workflow) error
	ListEscalationCandidates(ctx context.Context) ([]Workflow, error)
	MarkEscalated(ctx context.Context, wf *Workflow, now time.Time) (bool, error)
	Count(ctx context.Context) (int, error)
	CountEscalated(ctx context.Context) (int, error)
}

type WorkflowRepositoryImpl struct {
	DB *database.Database
}

func NewWorkflowRepository(db *database.Database) WorkflowRepository {
	return &WorkflowRepositoryImpl{DB: db}
}

const workflowColumns = "id, title, description, status, current_step_index, step_start_time, is_escalated, requester_id, template_id, callback_url, created_at, updated_at"

func (r *WorkflowRepositoryImpl) Create(ctx context.Context, wf *Workflow) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO workflows (`+workflowColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID,
		wf.Title,
		wf.Description,
		wf.Status,
		wf.CurrentStepIndex,
		database.FormatTime(wf.StepStartTime),
		wf.IsEscalated,
		wf.RequesterID,
		database.NullableString(wf.TemplateID),
		database.NullableString(wf.CallbackURL),
		database.FormatTime(wf.CreatedAt),
		database.FormatTime(wf.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepositoryImpl) GetByID(ctx context.Context, id string, forUpdate bool) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = ?`
	if forUpdate {
		query += r.DB.ForUpdate()
	}
	wf, err := scanWorkflow(r.DB.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return wf, nil
}

func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]Workflow, error) {
	return r.list(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at DESC, id`)
}

func (r *WorkflowRepositoryImpl) ListByRequester(ctx context.Context, requesterID string) ([]Workflow, error) {
	return r.list(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE requester_id = ? ORDER BY created_at DESC, id`, requesterID)
}

func (r *WorkflowRepositoryImpl) UpdateState(ctx context.Context, wf *Workflow) error {
	res, err := r.DB.Exec(ctx,
		`UPDATE workflows
		SET status = ?, current_step_index = ?, step_start_time = ?, is_escalated = ?, updated_at = ?
		WHERE id = ?`,
		wf.Status,
		wf.CurrentStepIndex,
		database.FormatTime(wf.StepStartTime),
		wf.IsEscalated,
		database.FormatTime(wf.UpdatedAt),
		wf.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", wf.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("update workflow %s: %d rows affected", wf.ID, n)
	}
	return nil
}

// ListEscalationCandidates returns submitted, templated workflows that are
// not escalated yet.
func (r *WorkflowRepositoryImpl) ListEscalationCandidates(ctx context.Context) ([]Workflow, error) {
	return r.list(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		WHERE status = ? AND is_escalated = ? AND template_id IS NOT NULL
		ORDER BY step_start_time ASC, id`,
		StatusSubmitted, false)
}

// MarkEscalated flags wf only if it is still in the state it was read in.
// It returns false when a concurrent transition got there first.
func (r *WorkflowRepositoryImpl) MarkEscalated(ctx context.Context, wf *Workflow, now time.Time) (bool, error) {
	res, err := r.DB.Exec(ctx,
		`UPDATE workflows SET is_escalated = ?, updated_at = ?
		WHERE id = ? AND is_escalated = ? AND status = ? AND current_step_index = ? AND step_start_time = ?`,
		true,
		database.FormatTime(now),
		wf.ID,
		false,
		wf.Status,
		wf.CurrentStepIndex,
		database.FormatTime(wf.StepStartTime),
	)
	if err != nil {
		return false, fmt.Errorf("escalate workflow %s: %w", wf.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *WorkflowRepositoryImpl) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(1) FROM workflows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}

func (r *WorkflowRepositoryImpl) CountEscalated(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(1) FROM workflows WHERE is_escalated = ?`, true).Scan(&n); err != nil {
		return 0, fmt.Errorf("count escalated workflows: %w", err)
	}
	return n, nil
}

func (r *WorkflowRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]Workflow, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

func scanWorkflow(row database.RowScanner) (*Workflow, error) {
	var (
		wf                      Workflow
		status                  string
		stepStart, created, upd string
		templateID, callbackURL sql.NullString
	)
	err := row.Scan(
		&wf.ID, &wf.Title, &wf.Description, &status, &wf.CurrentStepIndex, &stepStart,
		&wf.IsEscalated, &wf.RequesterID, &templateID, &callbackURL, &created, &upd,
	)
	if err != nil {
		return nil, err
	}
	wf.Status = Status(status)
	wf.TemplateID = database.StringPtr(templateID)
	wf.CallbackURL = database.StringPtr(callbackURL)

	if wf.StepStartTime, err = database.ParseTime(stepStart); err != nil {
		return nil, err
	}
	if wf.CreatedAt, err = database.ParseTime(created); err != nil {
		return nil, err
	}
	if wf.UpdatedAt, err = database.ParseTime(upd); err != nil {
		return nil, err
	}
	return &wf, nil
}
