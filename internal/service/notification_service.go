package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/notifier"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// NotificationService turns workflow events into notifications for the people
// on the ticket. It runs on the dispatcher's workers; delivery failures are
// logged and dropped.
type NotificationService struct {
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	users      repository.UserRepository
	notifier   notifier.Notifier
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Notifier   notifier.Notifier
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		notifier:   deps.Notifier,
		logger:     defaultLogger(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.HandleEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.HandleEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.HandleEvent)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.HandleEvent)
}

// HandleEvent notifies the recipients of one event.
func (n *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			n.logger.Debug("ticket gone before notification",
				zap.String("ticket_id", event.TicketID),
				zap.String("event_type", string(event.Type)))
			return nil
		}
		return err
	}

	recipientIDs := Recipients(event, ticket)
	if len(recipientIDs) == 0 {
		return nil
	}
	addresses := n.addresses(ctx, recipientIDs)
	if len(addresses) == 0 {
		return nil
	}

	assigneeName := ""
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
		assigneeName = n.displayName(ctx, payload.NewAssigneeID)
	}
	msg := renderNotification(event, ticket, assigneeName)
	if err := n.notifier.Notify(ctx, string(event.Type), msg, addresses); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", ticket.ID),
			zap.Strings("to", addresses),
			zap.Error(err))
		return nil
	}
	n.logger.Debug("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", ticket.ID),
		zap.Int("recipients", len(addresses)))
	return nil
}

// Recipients returns the user ids to notify for event on ticket.
//
// Creation and status changes go to the creator; an assignment to the new
// assignee and the creator. A public comment from the creator goes to the
// assignee and one from the assignee goes to the creator. Internal comments
// and comments from anyone else notify nobody.
func Recipients(event events.Event, ticket *domain.Ticket) []string {
	var ids []string
	switch event.Type {
	case events.EventTicketCreated, events.EventTicketStatusChanged:
		ids = []string{ticket.CreatorID}
	case events.EventTicketAssigned:
		if payload, ok := event.Payload.(events.TicketAssignedPayload); ok && payload.NewAssigneeID != "" {
			ids = append(ids, payload.NewAssigneeID)
		}
		ids = append(ids, ticket.CreatorID)
	case events.EventCommentAdded:
		payload, ok := event.Payload.(events.CommentAddedPayload)
		if !ok || payload.Internal {
			return nil
		}
		switch {
		case ticket.IsCreator(payload.AuthorID):
			if ticket.AssigneeID != nil {
				ids = []string{*ticket.AssigneeID}
			}
		case ticket.IsAssignee(payload.AuthorID):
			ids = []string{ticket.CreatorID}
		}
		ids = without(ids, payload.AuthorID)
	}
	return unique(ids)
}

func (n *NotificationService) addresses(ctx context.Context, userIDs []string) []string {
	addresses := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			n.logger.Warn("notification recipient lookup failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		if user.Email != "" {
			addresses = append(addresses, user.Email)
		}
	}
	return addresses
}

// renderNotification builds the message from the event payload so a queued
// event reports the state it was published with. Only the subject line is
// read from the ticket.
func renderNotification(event events.Event, ticket *domain.Ticket, assigneeName string) notifier.Notification {
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return notifier.Notification{
			Subject: fmt.Sprintf("Ticket Created - #%s", ticket.ID),
			Body: fmt.Sprintf("Your ticket has been created successfully.\n\nSubject: %s\nPriority: %s\nStatus: %s\n\nWe will get back to you soon.",
				payload.Subject, payload.Priority, domain.TicketStatusOpen),
		}
	case events.TicketStatusChangedPayload:
		return notifier.Notification{
			Subject: fmt.Sprintf("Ticket Status Updated - #%s", ticket.ID),
			Body: fmt.Sprintf("The status of your ticket has been updated.\n\nSubject: %s\nPrevious Status: %s\nCurrent Status: %s",
				ticket.Subject, payload.OldStatus, payload.NewStatus),
		}
	case events.TicketAssignedPayload:
		return notifier.Notification{
			Subject: fmt.Sprintf("Ticket Assigned - #%s", ticket.ID),
			Body: fmt.Sprintf("The ticket has been assigned.\n\nSubject: %s\nAssigned To: %s\nStatus: %s",
				ticket.Subject, assigneeName, payload.Status),
		}
	case events.CommentAddedPayload:
		return notifier.Notification{
			Subject: fmt.Sprintf("New Comment on Ticket - #%s", ticket.ID),
			Body:    fmt.Sprintf("A new comment has been added to the ticket.\n\nSubject: %s\n\n%s", ticket.Subject, payload.BodyPreview),
		}
	}
	return notifier.Notification{
		Subject: fmt.Sprintf("Ticket Update - #%s", ticket.ID),
		Body:    ticket.Subject,
	}
}

// displayName resolves a user id to a readable name, falling back to the id.
func (n *NotificationService) displayName(ctx context.Context, userID string) string {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	if name := user.FullName(); name != "" {
		return name
	}
	return user.Username
}

func without(ids []string, drop string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
