package dto

import (
	"time"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// TicketRequest is the create and update payload.
type TicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// StatusRequest changes ticket status.
type StatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignRequest assigns a ticket.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketResponse is the ticket representation.
type TicketResponse struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatorID   string                `json:"creator_id"`
	AssigneeID  *string               `json:"assignee_id"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// PageMeta describes one page of a listing. Page numbers start at zero.
type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// CommentRequest posts a comment.
type CommentRequest struct {
	Content  string `json:"content"`
	Internal bool   `json:"internal"`
}

// CommentResponse is a thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentResponse is attachment metadata. The storage handle is not exposed.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	UploaderID   string    `json:"uploader_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingRequest rates a ticket.
type RatingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// RatingResponse is a stored rating.
type RatingResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	RaterID   string    `json:"rater_id"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistoryResponse is an audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID string                  `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}
