package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// RatingRepository stores ticket ratings. A ticket has at most one rating;
// Create returns ErrConflict for a second one.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error)
	AverageOverall(ctx context.Context) (*float64, error)
	AverageForAssignee(ctx context.Context, assigneeID string) (*float64, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository builds repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

func (r *ratingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	const query = `
        INSERT INTO ratings (ticket_id, rater_id, value, feedback)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		rating.TicketID,
		rating.RaterID,
		rating.Value,
		rating.Feedback,
	).Scan(&rating.ID, &rating.CreatedAt)
	return mapPgError(err)
}

func (r *ratingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error) {
	const query = `
        SELECT id, ticket_id, rater_id, value, feedback, created_at
        FROM ratings WHERE ticket_id=$1`
	var rating domain.Rating
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.RaterID,
		&rating.Value,
		&rating.Feedback,
		&rating.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &rating, nil
}

func (r *ratingRepository) AverageOverall(ctx context.Context) (*float64, error) {
	var avg *float64
	if err := r.pool.QueryRow(ctx, `SELECT AVG(value)::float8 FROM ratings`).Scan(&avg); err != nil {
		return nil, mapPgError(err)
	}
	return avg, nil
}

func (r *ratingRepository) AverageForAssignee(ctx context.Context, assigneeID string) (*float64, error) {
	const query = `
        SELECT AVG(r.value)::float8
        FROM ratings r JOIN tickets t ON t.id = r.ticket_id
        WHERE t.assignee_id=$1`
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, assigneeID).Scan(&avg); err != nil {
		return nil, mapPgError(err)
	}
	return avg, nil
}
