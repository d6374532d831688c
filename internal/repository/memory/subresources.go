package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

type commentRepository struct {
	s *Store
}

func (r *commentRepository) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return repository.ErrConflict
	}
	comment.ID = newID()
	comment.CreatedAt = r.s.now()
	r.s.comments[comment.ID] = commentRecord{seq: r.s.nextSeq(), comment: *comment}
	return nil
}

func (r *commentRepository) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []commentRecord
	for _, rec := range r.s.comments {
		if rec.comment.TicketID != ticketID {
			continue
		}
		if rec.comment.Internal && !includeInternal {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if c := matched[i].comment.CreatedAt.Compare(matched[j].comment.CreatedAt); c != 0 {
			return c < 0
		}
		return matched[i].seq < matched[j].seq
	})
	result := make([]domain.Comment, 0, len(matched))
	for _, rec := range matched {
		result = append(result, rec.comment)
	}
	return result, nil
}

type attachmentRepository struct {
	s *Store
}

func (r *attachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[attachment.TicketID]; !ok {
		return repository.ErrConflict
	}
	attachment.ID = newID()
	attachment.CreatedAt = r.s.now()
	r.s.attachments[attachment.ID] = attachmentRecord{seq: r.s.nextSeq(), attachment: *attachment}
	return nil
}

func (r *attachmentRepository) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	attachment := rec.attachment
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []attachmentRecord
	for _, rec := range r.s.attachments {
		if rec.attachment.TicketID == ticketID {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	result := make([]domain.Attachment, 0, len(matched))
	for _, rec := range matched {
		result = append(result, rec.attachment)
	}
	return result, nil
}

func (r *attachmentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.attachments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.attachments, id)
	return nil
}

type ratingRepository struct {
	s *Store
}

func (r *ratingRepository) Create(_ context.Context, rating *domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[rating.TicketID]; !ok {
		return repository.ErrConflict
	}
	for _, rec := range r.s.ratings {
		if rec.rating.TicketID == rating.TicketID {
			return repository.ErrConflict
		}
	}
	rating.ID = newID()
	rating.CreatedAt = r.s.now()
	r.s.ratings[rating.ID] = ratingRecord{seq: r.s.nextSeq(), rating: *rating}
	return nil
}

func (r *ratingRepository) GetByTicket(_ context.Context, ticketID string) (*domain.Rating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.ratings {
		if rec.rating.TicketID == ticketID {
			rating := rec.rating
			return &rating, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ratingRepository) AverageOverall(_ context.Context) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.average(func(domain.Rating) bool { return true }), nil
}

func (r *ratingRepository) AverageForAssignee(_ context.Context, assigneeID string) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.average(func(rating domain.Rating) bool {
		rec, ok := r.s.tickets[rating.TicketID]
		return ok && rec.ticket.IsAssignee(assigneeID)
	}), nil
}

// average must be called with the read lock held.
func (r *ratingRepository) average(include func(domain.Rating) bool) *float64 {
	var sum, n int
	for _, rec := range r.s.ratings {
		if include(rec.rating) {
			sum += rec.rating.Value
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := float64(sum) / float64(n)
	return &avg
}

type historyRepository struct {
	s *Store
}

func (r *historyRepository) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return repository.ErrConflict
	}
	entry.ID = newID()
	entry.CreatedAt = r.s.now()
	stored := *entry
	stored.OldValue = cloneMap(entry.OldValue)
	stored.NewValue = cloneMap(entry.NewValue)
	r.s.history[entry.ID] = historyRecord{seq: r.s.nextSeq(), entry: stored}
	return nil
}

func (r *historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []historyRecord
	for _, rec := range r.s.history {
		if rec.entry.TicketID == ticketID {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	result := make([]domain.TicketHistory, 0, len(matched))
	for _, rec := range matched {
		entry := rec.entry
		entry.OldValue = cloneMap(rec.entry.OldValue)
		entry.NewValue = cloneMap(rec.entry.NewValue)
		result = append(result, entry)
	}
	return result, nil
}
