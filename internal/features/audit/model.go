package audit

import (
	"time"

	"go-regula/internal/common/models"
)

type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionSubmit     Action = "SUBMIT"
	ActionApprove    Action = "APPROVE"
	ActionReject     Action = "REJECT"
	ActionExecute    Action = "EXECUTE"
	ActionEscalation Action = "ESCALATION"
)

// Entry is one immutable record in a workflow's audit trail. PerformedBy is a
// snapshot of the actor at the time of the action.
type Entry struct {
	ID          string       `json:"id"`
	Seq         int64        `json:"seq"`
	WorkflowID  string       `json:"workflowId"`
	Action      Action       `json:"action"`
	FromStatus  *string      `json:"fromStatus"`
	ToStatus    string       `json:"toStatus"`
	PerformedBy models.Actor `json:"performedBy"`
	Comment     *string      `json:"comment,omitempty"`
	StepIndex   *int         `json:"stepIndex,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	PrevHash    string       `json:"prevHash"`
	Hash        string       `json:"hash"`
}

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid      bool   `json:"valid"`
	Entries    int    `json:"entries"`
	Error      string `json:"error,omitempty"`
	BrokenAt   int64  `json:"brokenAt,omitempty"`
	BrokenID   string `json:"brokenId,omitempty"`
	WorkflowID string `json:"workflowId"`
}
