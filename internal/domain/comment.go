package domain

import "time"

// Comment is a message in a ticket thread. Internal comments are hidden from
// REGULAR users.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	Internal  bool
	CreatedAt time.Time
}
