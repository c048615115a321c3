package notification

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Task is a unit of best-effort work run by the Dispatcher.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

const subjectPrefix = "[Regula]"

func WorkflowSubject(action, title string) string {
	return fmt.Sprintf("%s Workflow %s: %s", subjectPrefix, action, title)
}

func BreachSubject(title string) string {
	return fmt.Sprintf("[URGENT] SLA Breach: %s", title)
}

// BuildWorkflowEmail renders the standard notification body.
func BuildWorkflowEmail(action, title, status string, ts time.Time) string {
	var b strings.Builder
	b.WriteString("Workflow Notification\n")
	b.WriteString("=====================\n\n")
	fmt.Fprintf(&b, "Action: %s\n", action)
	fmt.Fprintf(&b, "Workflow: %s\n", title)
	fmt.Fprintf(&b, "Current Status: %s\n", status)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", ts.UTC().Format(time.RFC3339))
	b.WriteString("This is an automated notification from the Regula Workflow System.")
	return b.String()
}
