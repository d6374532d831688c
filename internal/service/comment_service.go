package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/policy"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

const commentPreviewLength = 140

// CommentService manages the ticket comment thread.
type CommentService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	events   publisher
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// CommentInput is a new comment. Internal is honored for staff only.
type CommentInput struct {
	Content  string
	Internal bool
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		events: publisher{
			dispatcher: deps.Dispatcher,
			logger:     defaultLogger(deps.Logger),
			now:        defaultClock(deps.Clock),
		},
	}
}

// List returns the thread oldest first. Regular users never see internal
// comments.
func (s *CommentService) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Comment, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to view comments on this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, actor.Role.IsStaff())
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// Add posts a comment. A regular user asking for an internal comment gets a
// public one.
func (s *CommentService) Add(ctx context.Context, actor domain.Actor, ticketID string, input CommentInput) (*domain.Comment, error) {
	content, err := requireText("content", input.Content)
	if err != nil {
		return nil, err
	}
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to comment on this ticket")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Content:  content,
		Internal: input.Internal && actor.Role.IsStaff(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticket.ID})
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			Internal:    comment.Internal,
			BodyPreview: stringPreview(comment.Content, commentPreviewLength),
		},
	})
	return comment, nil
}

func loadTicket(ctx context.Context, tickets repository.TicketRepository, ticketID string) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}
