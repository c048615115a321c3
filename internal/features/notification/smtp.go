package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go-regula/internal/config"

	"go.uber.org/zap"
)

// Notifier delivers a message to its recipients.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPNotifier struct {
	Config config.SMTPConfig
	Logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg *config.Config, logger *zap.Logger) Notifier {
	return &SMTPNotifier{
		Config: cfg.SMTP,
		Logger: logger,
		send:   smtp.SendMail,
	}
}

// Send skips delivery when SMTP credentials are not configured.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if !n.Config.Enabled() {
		n.Logger.Info("SMTP not configured, skipping email", zap.String("subject", msg.Subject), zap.Strings("to", msg.To))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.Config.Host, n.Config.Port)
	auth := smtp.PlainAuth("", n.Config.User, n.Config.Pass, n.Config.Host)

	if err := n.send(addr, auth, n.Config.From, msg.To, buildMIME(n.Config.From, msg)); err != nil {
		return fmt.Errorf("send email %q: %w", msg.Subject, err)
	}
	n.Logger.Info("Email sent", zap.String("subject", msg.Subject), zap.Int("recipients", len(msg.To)))
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
