// Package notifier delivers workflow notifications to people.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
)

// Notification is the rendered content of one notice.
type Notification struct {
	Subject string
	Body    string
}

// Notifier delivers a notification for a named event to email-like recipients.
type Notifier interface {
	Notify(ctx context.Context, kind string, n Notification, recipients []string) error
}

// New picks the SMTP notifier when a host is configured and the log notifier
// otherwise.
func New(cfg config.NotificationConfig, logger *zap.Logger) Notifier {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set; notifications are logged only")
		return NewLogNotifier(logger)
	}
	return NewSMTPNotifier(cfg)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, kind string, n Notification, recipients []string) error {
	l.logger.Info("notification",
		zap.String("kind", kind),
		zap.Strings("to", recipients),
		zap.String("subject", n.Subject))
	return nil
}
