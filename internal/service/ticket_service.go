package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/blob"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/lifecycle"
	"github.com/spec-kit/ticket-workflow/internal/policy"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Every mutation validates input,
// loads the ticket, consults the policy, writes once and then publishes.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	attachments repository.AttachmentRepository
	blobs       blob.Store
	events      publisher
	logger      *zap.Logger
	now         Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	AttachmentRepo repository.AttachmentRepository
	Blobs          blob.Store
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          Clock
}

// TicketInput carries the editable ticket fields. An empty priority means MEDIUM.
type TicketInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing parameters.
type TicketListFilter struct {
	SearchTerm *string
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CreatorID  *string
	AssigneeID *string
	repository.Sort
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items []domain.Ticket
	Total int64
	repository.Sort
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := defaultClock(deps.Clock)
	logger := defaultLogger(deps.Logger)
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		attachments: deps.AttachmentRepo,
		blobs:       deps.Blobs,
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
		logger:      logger,
		now:         now,
	}
}

func (in TicketInput) normalize() (TicketInput, error) {
	subject, err := requireText("subject", in.Subject)
	if err != nil {
		return in, err
	}
	in.Subject = subject
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}
	if !in.Priority.Valid() {
		return in, apperrors.NewValidationError("invalid priority", map[string]any{"priority": in.Priority})
	}
	return in, nil
}

// Create opens a ticket owned by actor.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketInput) (*domain.Ticket, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:     input.Subject,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      lifecycle.Initial(),
		CreatorID:   actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, notFoundOr(err, "ticket", nil)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// Get returns the ticket if actor may view it.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to view this ticket")
	}
	return ticket, nil
}

// UpdateFields rewrites subject, description and priority. Status and
// assignee are left untouched.
func (s *TicketService) UpdateFields(ctx context.Context, actor domain.Actor, ticketID string, input TicketInput) (*domain.Ticket, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModify(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to update this ticket")
	}

	ticket.Subject = input.Subject
	ticket.Description = input.Description
	ticket.Priority = input.Priority
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ChangeStatus moves the ticket to status.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanChangeStatus(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to change ticket status")
	}

	old := lifecycle.ApplyStatus(ticket, status, s.now())
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: old,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// Assign hands the ticket to assigneeID. The assignee must hold AGENT or
// ADMIN; whether the account is active is not checked.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	assigneeID, err := requireText("assignee_id", assigneeID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, notFoundOr(err, "assignee", map[string]any{"assignee_id": assigneeID})
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewInvalidAssignee("can only assign tickets to support agents or admins",
			map[string]any{"assignee_id": assigneeID, "role": assignee.Role})
	}
	if !policy.CanAssign(actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to assign this ticket")
	}

	old := lifecycle.ApplyAssignment(ticket, assignee.ID)
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			OldAssigneeID: old,
			NewAssigneeID: assignee.ID,
			Status:        ticket.Status,
		},
	})
	return ticket, nil
}

// Delete removes the ticket with its comments, attachments, rating and
// history. Attachment bytes are removed after the records are gone; a blob
// that cannot be removed is logged and left behind.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTicket(ticket, actor) {
		return apperrors.NewAccessDenied("you don't have permission to delete this ticket")
	}

	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}

	for _, attachment := range attachments {
		if err := s.blobs.Delete(ctx, attachment.BlobHandle); err != nil {
			s.logger.Warn("orphaned attachment blob",
				zap.String("ticket_id", ticket.ID),
				zap.String("attachment_id", attachment.ID),
				zap.Error(err))
		}
	}
	s.logger.Info("ticket deleted",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actor.ID),
		zap.Int("attachments", len(attachments)))
	return nil
}

// ListMine returns tickets created by actor.
func (s *TicketService) ListMine(ctx context.Context, actor domain.Actor, filter TicketListFilter) (*TicketPage, error) {
	filter.CreatorID = &actor.ID
	return s.list(ctx, filter)
}

// ListAssigned returns tickets assigned to actor.
func (s *TicketService) ListAssigned(ctx context.Context, actor domain.Actor, filter TicketListFilter) (*TicketPage, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewAccessDenied("only support staff have assigned tickets")
	}
	filter.AssigneeID = &actor.ID
	return s.list(ctx, filter)
}

// ListAll returns every ticket matching filter. Admin only.
func (s *TicketService) ListAll(ctx context.Context, actor domain.Actor, filter TicketListFilter) (*TicketPage, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewAccessDenied("admin role required")
	}
	return s.list(ctx, filter)
}

func (s *TicketService) list(ctx context.Context, filter TicketListFilter) (*TicketPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *filter.Status})
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *filter.Priority})
	}
	sort := filter.Sort.Normalize()
	items, total, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		SearchTerm: filter.SearchTerm,
		Status:     filter.Status,
		Priority:   filter.Priority,
		CreatorID:  filter.CreatorID,
		AssigneeID: filter.AssigneeID,
		Sort:       sort,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Ticket{}
	}
	return &TicketPage{Items: items, Total: total, Sort: sort}, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return loadTicket(ctx, s.tickets, ticketID)
}

func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}
	return nil
}
