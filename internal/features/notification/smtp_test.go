package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"go-regula/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMail struct {
	addr string
	from string
	to   []string
	body string
}

func stubNotifier(cfg config.SMTPConfig, err error) (*SMTPNotifier, *[]sentMail) {
	var sent []sentMail
	n := &SMTPNotifier{
		Config: cfg,
		Logger: zap.NewNop(),
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			sent = append(sent, sentMail{addr: addr, from: from, to: to, body: string(msg)})
			return err
		},
	}
	return n, &sent
}

func TestSMTPNotifierSkipsWhenUnconfigured(t *testing.T) {
	n, sent := stubNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, nil)
	require.NoError(t, n.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Body: "b"}))
	assert.Empty(t, *sent)
}

func TestSMTPNotifierSends(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: 2525, User: "u", Pass: "p", From: "noreply@regula.app"}
	n, sent := stubNotifier(cfg, nil)

	msg := Message{To: []string{"a@example.com", "b@example.com"}, Subject: WorkflowSubject("APPROVE", "Rotate keys"), Body: "line1\nline2"}
	require.NoError(t, n.Send(context.Background(), msg))

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, "smtp.example.com:2525", got.addr)
	assert.Equal(t, "noreply@regula.app", got.from)
	assert.Contains(t, got.body, "Subject: [Regula] Workflow APPROVE: Rotate keys\r\n")
	assert.Contains(t, got.body, "line1\r\nline2")
}

func TestSMTPNotifierWrapsErrors(t *testing.T) {
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: 25, User: "u", Pass: "p"}
	n, _ := stubNotifier(cfg, errors.New("connection refused"))
	err := n.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildWorkflowEmail(t *testing.T) {
	body := BuildWorkflowEmail("SUBMIT", "Rotate keys", "SUBMITTED", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(body, "Workflow Notification\n"))
	assert.Contains(t, body, "Action: SUBMIT\n")
	assert.Contains(t, body, "Current Status: SUBMITTED\n")
	assert.Contains(t, body, "Timestamp: 2024-03-01T09:00:00Z")
	assert.Equal(t, "[URGENT] SLA Breach: Rotate keys", BreachSubject("Rotate keys"))
}
