package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/spec-kit/ticket-workflow/internal/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends plain-text mail through an SMTP relay.
type SMTPNotifier struct {
	host     string
	port     string
	user     string
	password string
	from     string
	send     sendFunc
}

// NewSMTPNotifier builds a notifier from config.
func NewSMTPNotifier(cfg config.NotificationConfig) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
		send:     smtp.SendMail,
	}
}

func (s *SMTPNotifier) Notify(ctx context.Context, kind string, n Notification, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	msg := buildMessage(s.from, recipients, kind, n)
	if err := s.send(net.JoinHostPort(s.host, s.port), auth, s.from, recipients, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	return nil
}

func buildMessage(from string, to []string, kind string, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(n.Subject))
	fmt.Fprintf(&b, "X-Ticket-Event: %s\r\n", kind)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
