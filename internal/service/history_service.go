package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/policy"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// HistoryService keeps the audit trail of status and assignee changes. Entries
// are written from events, so a failure to record never fails the change.
type HistoryService struct {
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	logger     *zap.Logger
}

// HistoryDependencies bundles collaborators for the history service.
type HistoryDependencies struct {
	Dispatcher  events.Dispatcher
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Logger      *zap.Logger
}

// NewHistoryService creates the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	return &HistoryService{
		dispatcher: deps.Dispatcher,
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		logger:     defaultLogger(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil {
		return
	}
	h.dispatcher.Subscribe(events.EventTicketStatusChanged, h.HandleEvent)
	h.dispatcher.Subscribe(events.EventTicketAssigned, h.HandleEvent)
}

// HandleEvent records one change.
func (h *HistoryService) HandleEvent(ctx context.Context, event events.Event) error {
	entry := &domain.TicketHistory{
		TicketID:    event.TicketID,
		ChangedByID: event.ActorID,
	}
	switch payload := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": payload.OldStatus}
		entry.NewValue = map[string]any{"status": payload.NewStatus}
	case events.TicketAssignedPayload:
		entry.ChangeType = domain.ChangeTypeAssignee
		var old any
		if payload.OldAssigneeID != nil {
			old = *payload.OldAssigneeID
		}
		entry.OldValue = map[string]any{"assignee_id": old}
		entry.NewValue = map[string]any{"assignee_id": payload.NewAssigneeID}
	default:
		return nil
	}

	if err := h.history.Create(ctx, entry); err != nil {
		// The ticket may have been deleted since the event was queued.
		if errors.Is(err, repository.ErrConflict) {
			h.logger.Debug("history skipped for missing ticket", zap.String("ticket_id", event.TicketID))
			return nil
		}
		return err
	}
	return nil
}

// List returns the ticket's history oldest first.
func (h *HistoryService) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := loadTicket(ctx, h.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to view this ticket")
	}
	entries, err := h.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}
