package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
)

func TestSMTPNotifierSendsToRecipients(t *testing.T) {
	n := NewSMTPNotifier(config.NotificationConfig{
		EmailFrom: "desk@example.com",
		SMTPHost:  "mail.example.com",
		SMTPPort:  "2525",
	})
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := n.Notify(context.Background(), "ticket_created", Notification{
		Subject: "Ticket created\r\nBcc: evil@example.com",
		Body:    "line one\nline two",
	}, []string{"u1@example.com", "a1@example.com"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotAddr != "mail.example.com:2525" || gotFrom != "desk@example.com" || len(gotTo) != 2 {
		t.Fatalf("unexpected envelope %s %s %v", gotAddr, gotFrom, gotTo)
	}
	if strings.Contains(gotMsg, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", gotMsg)
	}
	if !strings.Contains(gotMsg, "X-Ticket-Event: ticket_created") || !strings.Contains(gotMsg, "line one\r\nline two") {
		t.Fatalf("unexpected message %q", gotMsg)
	}
}

func TestSMTPNotifierSkipsEmptyRecipients(t *testing.T) {
	n := NewSMTPNotifier(config.NotificationConfig{SMTPHost: "mail.example.com", SMTPPort: "25"})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatalf("send called without recipients")
		return nil
	}
	if err := n.Notify(context.Background(), "comment_added", Notification{}, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestSMTPNotifierWrapsSendError(t *testing.T) {
	n := NewSMTPNotifier(config.NotificationConfig{SMTPHost: "mail.example.com", SMTPPort: "25"})
	sendErr := errors.New("connection refused")
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return sendErr }
	if err := n.Notify(context.Background(), "ticket_assigned", Notification{}, []string{"x@example.com"}); !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewFallsBackToLogNotifier(t *testing.T) {
	if _, ok := New(config.NotificationConfig{}, zap.NewNop()).(*LogNotifier); !ok {
		t.Fatalf("expected LogNotifier without SMTP host")
	}
	if _, ok := New(config.NotificationConfig{SMTPHost: "mail"}, zap.NewNop()).(*SMTPNotifier); !ok {
		t.Fatalf("expected SMTPNotifier with SMTP host")
	}
}
