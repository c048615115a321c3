package systemlog

import (
	"time"

	"go-regula/internal/common/models"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusInfo    Status = "INFO"
)

const (
	EventWorkflowCreate  = "WORKFLOW_CREATE"
	EventWorkflowSubmit  = "WORKFLOW_SUBMIT"
	EventWorkflowApprove = "WORKFLOW_APPROVE"
	EventWorkflowReject  = "WORKFLOW_REJECT"
	EventWorkflowExecute = "WORKFLOW_EXECUTE"
	EventSLABreach       = "SLA_BREACH"
	EventWebhookSent     = "WEBHOOK_SENT"
	EventWebhookFailed   = "WEBHOOK_FAILED"
	EventWebhookAborted  = "WEBHOOK_ABORTED"
	EventNotifyFailed    = "NOTIFICATION_FAILED"
)

// Event is a best-effort observability record. It is never part of a
// workflow transaction.
type Event struct {
	ID         string         `json:"id" bson:"_id"`
	EventType  string         `json:"eventType" bson:"event_type"`
	ActorEmail *string        `json:"actorEmail,omitempty" bson:"actor_email,omitempty"`
	ActorRole  *string        `json:"actorRole,omitempty" bson:"actor_role,omitempty"`
	WorkflowID *string        `json:"workflowId,omitempty" bson:"workflow_id,omitempty"`
	Status     Status         `json:"status" bson:"status"`
	Message    string         `json:"message" bson:"message"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp" bson:"timestamp"`
}

// NewEvent fills the actor and workflow fields. An empty workflowID is left unset.
func NewEvent(eventType string, actor models.Actor, workflowID string, status Status, message string, metadata map[string]any) Event {
	e := Event{
		EventType: eventType,
		Status:    status,
		Message:   message,
		Metadata:  metadata,
	}
	if actor.Email != "" {
		email := actor.Email
		e.ActorEmail = &email
	}
	if actor.Role != "" {
		role := string(actor.Role)
		e.ActorRole = &role
	}
	if workflowID != "" {
		id := workflowID
		e.WorkflowID = &id
	}
	return e
}

type Query struct {
	EventType  string
	WorkflowID string
	ActorRole  string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize clamps paging to sane bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Page struct {
	Logs       []Event `json:"logs"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

func newPage(logs []Event, total int, q Query) Page {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return Page{Logs: logs, Total: total, Page: q.Page, Limit: q.Limit, TotalPages: pages}
}
