package workflow

import (
	"strings"
	"time"

	"go-regula/internal/common/apperr"
	"go-regula/internal/features/audit"
	"go-regula/internal/features/template"
	"go-regula/internal/features/webhook"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusExecuted  Status = "EXECUTED"
)

var Statuses = []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusExecuted}

type Action string

const (
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionExecute Action = "EXECUTE"
)

var Actions = []Action{ActionSubmit, ActionApprove, ActionReject, ActionExecute}

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionExecute:
		return a, nil
	}
	return "", apperr.Validation("unknown action %q: expected one of SUBMIT, APPROVE, REJECT, EXECUTE", s)
}

// RequiresComment reports whether the action must carry a justification.
func (a Action) RequiresComment() bool {
	return a == ActionApprove || a == ActionReject
}

// EventName is the callback event emitted for the action, e.g. workflow.approve.
func (a Action) EventName() string {
	return EventName(string(a))
}

func EventName(action string) string {
	return "workflow." + strings.ToLower(action)
}

// Workflow is a unit of approval. RequesterID is set at creation and never
// written again.
type Workflow struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Status           Status    `json:"status"`
	CurrentStepIndex int       `json:"currentStepIndex"`
	StepStartTime    time.Time `json:"stepStartTime"`
	IsEscalated      bool      `json:"isEscalated"`
	RequesterID      string    `json:"requesterId"`
	TemplateID       *string   `json:"templateId,omitempty"`
	CallbackURL      *string   `json:"callbackUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (w *Workflow) HasCallback() bool {
	return w.CallbackURL != nil && *w.CallbackURL != ""
}

// Snapshot is the workflow as carried in callback payloads.
func (w *Workflow) Snapshot() webhook.WorkflowSnapshot {
	return webhook.WorkflowSnapshot{
		ID:               w.ID,
		Title:            w.Title,
		Description:      w.Description,
		Status:           string(w.Status),
		CurrentStepIndex: w.CurrentStepIndex,
		IsEscalated:      w.IsEscalated,
		RequesterID:      w.RequesterID,
		TemplateID:       w.TemplateID,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

// WorkflowDetail is a workflow with its template and audit trail.
type WorkflowDetail struct {
	Workflow
	Template *template.WorkflowTemplate `json:"template,omitempty"`
	AuditLog []audit.Entry              `json:"auditLog"`
}

type CreateWorkflowInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TemplateID  *string `json:"templateId,omitempty"`
	CallbackURL *string `json:"callbackUrl,omitempty"`
}

type TransitionRequest struct {
	Action  string  `json:"action" example:"APPROVE"`
	Comment *string `json:"comment,omitempty"`
}
