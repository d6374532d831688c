package dto

import "github.com/spec-kit/ticket-workflow/internal/domain"

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatorID:   t.CreatorID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ResolvedAt:  t.ResolvedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewPageMeta computes paging metadata from limit/offset.
func NewPageMeta(limit, offset int, total int64) PageMeta {
	meta := PageMeta{Size: limit, Total: total}
	if limit > 0 {
		meta.Page = offset / limit
		meta.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return meta
}

// NewCommentResponses maps comments.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i]))
	}
	return out
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		Internal:  c.Internal,
		CreatedAt: c.CreatedAt,
	}
}

// NewAttachmentResponse maps attachment metadata.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:           a.ID,
		TicketID:     a.TicketID,
		UploaderID:   a.UploaderID,
		OriginalName: a.OriginalName,
		StoredName:   a.StoredName,
		ContentType:  a.ContentType,
		Size:         a.Size,
		CreatedAt:    a.CreatedAt,
	}
}

// NewAttachmentResponses maps attachments.
func NewAttachmentResponses(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		out = append(out, NewAttachmentResponse(&attachments[i]))
	}
	return out
}

// NewRatingResponse maps a rating; nil stays nil.
func NewRatingResponse(r *domain.Rating) *RatingResponse {
	if r == nil {
		return nil
	}
	return &RatingResponse{
		ID:        r.ID,
		TicketID:  r.TicketID,
		RaterID:   r.RaterID,
		Rating:    r.Value,
		Feedback:  r.Feedback,
		CreatedAt: r.CreatedAt,
	}
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}

// NewUserResponse maps a user without its password hash.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserResponses maps users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
