package domain

import "time"

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is the creator's satisfaction score for a finished ticket.
type Rating struct {
	ID        string
	TicketID  string
	RaterID   string
	Value     int
	Feedback  string
	CreatedAt time.Time
}
