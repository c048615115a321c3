package webhook

import (
	"encoding/json"
	"math"
	"time"
)

type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "PENDING"
	StatusFailed  DeliveryStatus = "FAILED"
	StatusSuccess DeliveryStatus = "SUCCESS"
	StatusAborted DeliveryStatus = "ABORTED"
)

const (
	// MaxAttempts is the number of failed attempts after which a record is aborted.
	MaxAttempts = 5
	// BatchSize caps the records claimed per ProcessBatch call.
	BatchSize = 10
)

// DeliveryRecord is one outbound callback for one workflow event.
type DeliveryRecord struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflowId"`
	URL            string          `json:"url"`
	Event          string          `json:"event"`
	Payload        json.RawMessage `json:"payload" swaggertype:"object"`
	Status         DeliveryStatus  `json:"status"`
	Attempt        int             `json:"attempt"`
	NextRetryAt    time.Time       `json:"nextRetryAt"`
	LastError      *string         `json:"lastError,omitempty"`
	LastStatusCode *int            `json:"lastStatusCode,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// RecentDelivery adds the workflow title for the admin listing.
type RecentDelivery struct {
	DeliveryRecord
	WorkflowTitle string `json:"workflowTitle"`
}

// Backoff is the wait before retrying after the given failed attempt count:
// 2, 4, 8 and 16 minutes.
func Backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Minute
}

// WorkflowSnapshot is the workflow state carried in a delivery payload.
type WorkflowSnapshot struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	CurrentStepIndex int       `json:"currentStepIndex"`
	IsEscalated      bool      `json:"isEscalated"`
	RequesterID      string    `json:"requesterId"`
	TemplateID       *string   `json:"templateId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Payload struct {
	Event     string           `json:"event"`
	Workflow  WorkflowSnapshot `json:"workflow"`
	Timestamp string           `json:"timestamp"`
}

func NewPayload(event string, wf WorkflowSnapshot, at time.Time) Payload {
	return Payload{Event: event, Workflow: wf, Timestamp: at.UTC().Format(time.RFC3339)}
}

type BatchResult struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Aborted   int `json:"aborted"`
}

type Stats struct {
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Succeeded   int    `json:"succeeded"`
	Failures    int    `json:"failures"`
	Aborted     int    `json:"aborted"`
	FailureRate string `json:"rate"`
}
