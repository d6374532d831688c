package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/policy"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// RatingService records the creator's satisfaction with a finished ticket.
type RatingService struct {
	tickets repository.TicketRepository
	ratings repository.RatingRepository
}

// RatingDependencies bundles collaborators for the rating service.
type RatingDependencies struct {
	TicketRepo repository.TicketRepository
	RatingRepo repository.RatingRepository
}

// RatingInput is a rating submission.
type RatingInput struct {
	Value    int
	Feedback string
}

// NewRatingService constructs the service.
func NewRatingService(deps RatingDependencies) *RatingService {
	return &RatingService{tickets: deps.TicketRepo, ratings: deps.RatingRepo}
}

// Submit rates the ticket. Only the creator may rate, once, after the ticket
// is resolved or closed.
func (s *RatingService) Submit(ctx context.Context, actor domain.Actor, ticketID string, input RatingInput) (*domain.Rating, error) {
	if input.Value < domain.MinRatingValue || input.Value > domain.MaxRatingValue {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5",
			map[string]any{"field": "rating", "value": input.Value})
	}
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	existing, err := s.find(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	switch policy.CheckRate(ticket, actor, existing != nil) {
	case policy.RateNotFinished:
		return nil, apperrors.NewInvalidState("ticket must be resolved or closed before rating",
			map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	case policy.RateAlreadyRated:
		return nil, apperrors.NewAlreadyRated(ticket.ID)
	case policy.RateDenied:
		return nil, apperrors.NewAccessDenied("only the ticket creator can rate the resolution")
	}

	rating := &domain.Rating{
		TicketID: ticket.ID,
		RaterID:  actor.ID,
		Value:    input.Value,
		Feedback: strings.TrimSpace(input.Feedback),
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewAlreadyRated(ticket.ID)
		}
		return nil, err
	}
	return rating, nil
}

// Get returns the ticket's rating, or nil when it has none.
func (s *RatingService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Rating, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewRating(ticket, actor) {
		return nil, apperrors.NewAccessDenied("you don't have permission to view this rating")
	}
	return s.find(ctx, ticket.ID)
}

func (s *RatingService) find(ctx context.Context, ticketID string) (*domain.Rating, error) {
	rating, err := s.ratings.GetByTicket(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rating, nil
}
